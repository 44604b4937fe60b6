// Package metrics records per-run harvester metrics with the Prometheus client
// and pushes them to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeMalformed  = "malformed"
)

// Recorder owns a private registry so each run pushes only its own series.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	rowsTotal        prometheus.Counter
	outcomesTotal    *prometheus.CounterVec
	transferBytes    prometheus.Histogram
	durationSeconds  *prometheus.HistogramVec
	lastRunTimestamp prometheus.Gauge
}

// New creates a Recorder whose metric names are prefixed with namespace.
func New(namespace string) *Recorder {
	namespace = sanitizeName(namespace)
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.rowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_total",
		Help:      "Catalog rows read.",
	})
	r.outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "row_outcomes_total",
		Help:      "Catalog rows by outcome.",
	}, []string{"outcome"})
	// 1KB .. 1GB
	r.transferBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transfer_bytes",
		Help:      "Size of downloaded images.",
		Buckets:   prometheus.ExponentialBuckets(1024, 10, 7),
	})
	r.durationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of probe and transfer requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	r.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the run finished.",
	})

	r.registry.MustRegister(r.rowsTotal, r.outcomesTotal, r.transferBytes, r.durationSeconds, r.lastRunTimestamp)
	return r
}

// Registry exposes the underlying registry, e.g. for a /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRow counts a catalog row.
func (r *Recorder) ObserveRow() {
	if r == nil {
		return
	}
	r.rowsTotal.Inc()
}

// ObserveOutcome counts a row outcome.
func (r *Recorder) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.outcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveProbe records the duration of an existence check.
func (r *Recorder) ObserveProbe(d time.Duration) {
	if r == nil {
		return
	}
	r.durationSeconds.WithLabelValues("probe").Observe(d.Seconds())
}

// ObserveTransfer records a completed or failed transfer. bytes is ignored when zero.
func (r *Recorder) ObserveTransfer(bytes int64, d time.Duration) {
	if r == nil {
		return
	}
	r.durationSeconds.WithLabelValues("transfer").Observe(d.Seconds())
	if bytes > 0 {
		r.transferBytes.Observe(float64(bytes))
	}
}

// Push sends all series to the Pushgateway at url under job, grouped by run id.
func (r *Recorder) Push(ctx context.Context, url, job, runID string) error {
	if r == nil || strings.TrimSpace(url) == "" {
		return nil
	}
	r.lastRunTimestamp.SetToCurrentTime()

	pusher := push.New(url, sanitizeName(job)).Gatherer(r.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "artifact_harvester"
	}
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
}
