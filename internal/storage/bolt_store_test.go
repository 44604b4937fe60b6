package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStoreRecordsAndExpiresDownloads(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		RecordTTL:       time.Hour,
		CleanupInterval: time.Hour,
	}

	storeRaw, err := openBolt(filepath.Join(dir, "ledger.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.lastCleanup.Store(now.Unix())

	seen, err := store.Seen("Starry Night_1980.1234.jpg")
	if err != nil || seen {
		t.Fatalf("expected unseen record, seen=%v err=%v", seen, err)
	}

	rec := Record{
		Key:          "Starry Night_1980.1234.jpg",
		URL:          "http://example.com/sn.jpg",
		Path:         "out/Starry Night_1980.1234.jpg",
		Bytes:        42,
		RunID:        "run-1",
		DownloadedAt: now,
	}
	if err := store.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, ok, err := store.Get(rec.Key)
	if err != nil || !ok {
		t.Fatalf("expected record, ok=%v err=%v", ok, err)
	}
	if got.URL != rec.URL || got.Bytes != 42 || !got.DownloadedAt.Equal(now) {
		t.Fatalf("unexpected record %#v", got)
	}

	// Move past the TTL; the entry is dropped on access.
	now = now.Add(2 * time.Hour)
	seen, err = store.Seen(rec.Key)
	if err != nil {
		t.Fatalf("Seen after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreRecordRejectsEmptyKey(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "ledger.db"), normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	if err := store.Record(Record{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(Record{Key: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if seen, _ := store.Seen("x"); seen {
		t.Fatalf("noop store should never report seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
