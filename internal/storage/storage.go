package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the local download ledger.

// Record describes one completed download.
type Record struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Path         string    `json:"path"`
	Bytes        int64     `json:"bytes"`
	RunID        string    `json:"run_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Store tracks downloaded images by file name.
type Store interface {
	Close() error
	Seen(key string) (bool, error)
	Get(key string) (Record, bool, error)
	Record(rec Record) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Seen(string) (bool, error)        { return false, nil }
func (noopStore) Get(string) (Record, bool, error) { return Record{}, false, nil }
func (noopStore) Record(Record) error              { return nil }
