package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/samvad-hq/artifact-harvester/internal/catalog"
	"github.com/samvad-hq/artifact-harvester/internal/config"
	"github.com/samvad-hq/artifact-harvester/internal/logger"
	"github.com/samvad-hq/artifact-harvester/internal/metrics"
	"github.com/samvad-hq/artifact-harvester/internal/scraper"
	"github.com/samvad-hq/artifact-harvester/internal/storage"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
	"github.com/samvad-hq/artifact-harvester/pkg/publishers"
)

// Harvester owns the resources of one catalog run: the catalog file, the
// shared HTTP client, the download ledger, publishers and metrics.
type Harvester struct {
	cfg     *config.Config
	runID   string
	source  *catalog.Source
	client  *httpclient.RestyClient
	store   storage.Store
	fanout  *publishers.Fanout
	metrics *metrics.Recorder
	service *scraper.Service
	log     logger.Logger
}

// NewHarvester opens the catalog and builds the pipeline from cfg. A missing
// or unreadable catalog fails here, before any row is processed.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	h := &Harvester{
		cfg:   cfg,
		runID: uuid.NewString(),
		log:   log,
	}

	if err := h.init(ctx); err != nil {
		return nil, errors.Join(err, h.Close())
	}
	return h, nil
}

func (h *Harvester) init(ctx context.Context) error {
	cfg := h.cfg

	info, err := os.Stat(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", cfg.OutputDir)
	}

	h.source, err = catalog.Open(cfg.CSVFile, catalog.Options{SkipHeader: cfg.SkipHeader})
	if err != nil {
		return err
	}

	h.store, err = storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RecordTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	h.log.DebugObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"record_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	if cfg.PublishersFile != "" {
		if h.fanout, err = h.buildPublishers(ctx); err != nil {
			return err
		}
	}

	if cfg.MetricsPushgatewayURL != "" {
		h.metrics = metrics.New(cfg.AppName)
	}

	h.client = httpclient.NewRestyClientWithAgent(cfg.HTTPTimeout, cfg.UserAgent)

	deps := scraper.Deps{
		Source:     h.source,
		Prober:     scraper.NewProber(h.client, h.log),
		Downloader: scraper.NewDownloader(h.client),
		Resolver:   scraper.NewPageImageResolver(h.client),
		Ledger:     h.store,
		Metrics:    h.metrics,
		Log:        h.log,
	}
	if h.fanout != nil {
		deps.Publisher = h.fanout
	}

	h.service, err = scraper.NewService(deps, scraper.Options{
		OutputDir:         cfg.OutputDir,
		SkipShortRows:     cfg.ShortRowPolicy == config.ShortRowSkip,
		ResolvePageImages: cfg.ResolvePageImages,
		RunID:             h.runID,
	})
	return err
}

func (h *Harvester) buildPublishers(ctx context.Context) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(h.cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, h.log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	h.log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// RunID identifies this run in logs, ledger records and events.
func (h *Harvester) RunID() string {
	return h.runID
}

// Summary returns the tallies of the last Run.
func (h *Harvester) Summary() scraper.Summary {
	if h == nil || h.service == nil {
		return scraper.Summary{}
	}
	return h.service.Summary()
}

// Run processes the whole catalog once and returns the status message. The
// catalog cannot be rewound, so a Harvester runs at most once.
func (h *Harvester) Run(ctx context.Context) (string, error) {
	if h == nil || h.service == nil {
		return "", fmt.Errorf("harvester is not initialized")
	}

	status, err := h.service.Run(ctx)
	h.pushMetrics(ctx)
	return status, err
}

func (h *Harvester) pushMetrics(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	// Push even after cancellation so partial runs are still reported.
	if err := h.metrics.Push(context.WithoutCancel(ctx), h.cfg.MetricsPushgatewayURL, h.cfg.AppName, h.runID); err != nil {
		h.log.WarnObj("metrics push failed", "metrics_error", map[string]any{
			"url":   h.cfg.MetricsPushgatewayURL,
			"error": err.Error(),
		})
	}
}

// Close releases every resource opened by NewHarvester. It is safe to call on
// a partially built Harvester.
func (h *Harvester) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	if h.client != nil {
		h.client.Close()
	}
	if h.fanout != nil {
		if err := h.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if h.source != nil {
		if err := h.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog: %w", err))
		}
	}
	return errors.Join(errs...)
}
