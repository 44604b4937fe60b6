package scraper

import (
	"context"

	"github.com/samvad-hq/artifact-harvester/internal/storage"
	"github.com/samvad-hq/artifact-harvester/pkg/publishers"
)

// RowSource yields catalog rows until io.EOF.
type RowSource interface {
	Next() ([]string, error)
	Line() int
}

// Prober checks whether an image URL is live before committing to a transfer.
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// Downloader transfers a remote resource to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) TransferResult
}

// ImageResolver finds the image behind an HTML page URL.
type ImageResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// Ledger remembers completed downloads across runs.
type Ledger interface {
	Seen(key string) (bool, error)
	Record(rec storage.Record) error
}

// EventPublisher publishes download events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
