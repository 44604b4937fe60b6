package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/internal/logger"
	"github.com/samvad-hq/artifact-harvester/internal/metrics"
	"github.com/samvad-hq/artifact-harvester/internal/storage"
	"github.com/samvad-hq/artifact-harvester/pkg/publishers"
)

// StatusMessage is returned once the catalog is exhausted, whatever the
// per-row outcomes were.
const StatusMessage = "All rows parsed & Files downloaded."

// Options tunes a harvest run.
type Options struct {
	OutputDir         string
	SkipShortRows     bool
	ResolvePageImages bool
	RunID             string
}

// Deps are the collaborators of a Service. Source, Prober and Downloader are
// required; the rest are optional.
type Deps struct {
	Source     RowSource
	Prober     Prober
	Downloader Downloader
	Resolver   ImageResolver
	Ledger     Ledger
	Publisher  EventPublisher
	Metrics    *metrics.Recorder
	Log        logger.Logger
}

// Summary tallies row outcomes for one run.
type Summary struct {
	Rows       int   `json:"rows"`
	Downloaded int   `json:"downloaded"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	Malformed  int   `json:"malformed"`
	Bytes      int64 `json:"bytes"`
}

// Service walks the catalog one row at a time: build the artifact, probe its
// image, download it when the probe succeeds.
type Service struct {
	deps    Deps
	opts    Options
	log     logger.Logger
	summary Summary
}

// NewService wires a harvest pipeline.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Source == nil || deps.Prober == nil || deps.Downloader == nil {
		return nil, fmt.Errorf("scraper service requires a row source, prober and downloader")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Service{
		deps: deps,
		opts: opts,
		log:  logger.Ensure(deps.Log),
	}, nil
}

// Summary returns the tallies of the last run.
func (s *Service) Summary() Summary {
	return s.summary
}

// Run processes every catalog row and returns StatusMessage once the source is
// exhausted. Network faults on individual rows are logged and skipped. A
// catalog read error, a short row under the fail policy, or a cancelled ctx
// end the run with an error.
func (s *Service) Run(ctx context.Context) (string, error) {
	start := time.Now()
	s.summary = Summary{}

	for {
		if err := ctx.Err(); err != nil {
			s.logSummary(start)
			return "", err
		}

		row, err := s.deps.Source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read catalog: %w", err)
		}

		s.summary.Rows++
		s.deps.Metrics.ObserveRow()

		if err := s.processRow(ctx, row); err != nil {
			s.logSummary(start)
			return "", err
		}
	}

	s.logSummary(start)
	return StatusMessage, nil
}

func (s *Service) processRow(ctx context.Context, row []string) error {
	artifact, err := domain.NewArtifact(row)
	if err != nil {
		s.summary.Malformed++
		s.deps.Metrics.ObserveOutcome(metrics.OutcomeMalformed)
		if !s.opts.SkipShortRows {
			return fmt.Errorf("catalog record %d: %w", s.deps.Source.Line(), err)
		}
		s.log.WarnObj("skipping malformed catalog row", "row_error", map[string]any{
			"line":  s.deps.Source.Line(),
			"error": err.Error(),
		})
		return nil
	}

	probeStart := time.Now()
	probe := s.deps.Prober.Probe(ctx, artifact.ImageURL)
	s.deps.Metrics.ObserveProbe(time.Since(probeStart))
	if !probe.Exists {
		s.summary.Skipped++
		s.deps.Metrics.ObserveOutcome(metrics.OutcomeSkipped)
		return nil
	}

	imageURL := artifact.ImageURL
	if s.opts.ResolvePageImages && s.deps.Resolver != nil && isHTML(probe.ContentType) {
		resolved, err := s.deps.Resolver.Resolve(ctx, imageURL)
		if err != nil {
			s.fail(artifact, fmt.Errorf("resolve page image: %w", err))
			return nil
		}
		imageURL = resolved
	}

	dest := filepath.Join(s.opts.OutputDir, artifact.FileName())
	s.checkLedger(artifact, dest)

	transferStart := time.Now()
	res := s.deps.Downloader.Download(ctx, imageURL, dest)
	s.deps.Metrics.ObserveTransfer(res.Bytes, time.Since(transferStart))
	if res.Err != nil {
		s.fail(artifact, res.Err)
		return nil
	}

	s.summary.Downloaded++
	s.summary.Bytes += res.Bytes
	s.deps.Metrics.ObserveOutcome(metrics.OutcomeDownloaded)
	s.log.DebugObj("image downloaded", "download", map[string]any{
		"file":  dest,
		"bytes": res.Bytes,
	})

	s.afterDownload(ctx, artifact, imageURL, dest, res.Bytes)
	return nil
}

// fail logs a transfer fault for the row; the run continues.
func (s *Service) fail(artifact domain.Artifact, err error) {
	s.summary.Failed++
	s.deps.Metrics.ObserveOutcome(metrics.OutcomeFailed)
	s.log.WarnObj("image download failed", "download_error", map[string]any{
		"url":   artifact.ImageURL,
		"file":  artifact.FileName(),
		"error": err.Error(),
	})
}

func (s *Service) checkLedger(artifact domain.Artifact, dest string) {
	if s.deps.Ledger == nil {
		return
	}
	seen, err := s.deps.Ledger.Seen(artifact.FileName())
	if err != nil {
		s.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{
			"file":  artifact.FileName(),
			"error": err.Error(),
		})
		return
	}
	if seen {
		s.log.DebugObj("replacing previously downloaded file", "download", map[string]any{
			"file": dest,
		})
	}
}

// afterDownload records the download and publishes its event. Failures here are
// logged only.
func (s *Service) afterDownload(ctx context.Context, artifact domain.Artifact, imageURL, dest string, n int64) {
	evt := publishers.NewEvent(s.opts.RunID, artifact, dest, n)

	if s.deps.Ledger != nil {
		err := s.deps.Ledger.Record(storage.Record{
			Key:          artifact.FileName(),
			URL:          imageURL,
			Path:         dest,
			Bytes:        n,
			RunID:        s.opts.RunID,
			DownloadedAt: evt.DownloadedAt,
		})
		if err != nil {
			s.log.WarnObj("ledger write failed", "ledger_error", map[string]any{
				"file":  artifact.FileName(),
				"error": err.Error(),
			})
		}
	}

	if s.deps.Publisher == nil {
		return
	}
	if _, err := s.deps.Publisher.Publish(ctx, evt); err != nil {
		s.log.WarnObj("download event publish failed", "publish_error", map[string]any{
			"file":  artifact.FileName(),
			"error": err.Error(),
		})
	}
}

func (s *Service) logSummary(start time.Time) {
	s.log.InfoObj("run completed", "run_summary", map[string]any{
		"run_id":     s.opts.RunID,
		"rows":       s.summary.Rows,
		"downloaded": s.summary.Downloaded,
		"skipped":    s.summary.Skipped,
		"failed":     s.summary.Failed,
		"malformed":  s.summary.Malformed,
		"bytes":      s.summary.Bytes,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}
