package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
)

// TransferResult is the outcome of a download.
type TransferResult struct {
	Bytes int64
	Err   error
}

// HTTPDownloader streams GET responses to disk.
type HTTPDownloader struct {
	client httpclient.Streamer
}

// NewDownloader builds a downloader on the shared HTTP client.
func NewDownloader(client httpclient.Streamer) *HTTPDownloader {
	return &HTTPDownloader{client: client}
}

// Download fetches url into dest, replacing any existing file. Bytes land in a
// temp file next to dest first, so a failed transfer leaves dest untouched.
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string) TransferResult {
	status, body, err := d.client.Stream(ctx, url, nil)
	if err != nil {
		return TransferResult{Err: fmt.Errorf("get %s: %w", url, err)}
	}
	defer body.Close()

	if status != http.StatusOK {
		return TransferResult{Err: fmt.Errorf("get %s: %w %d", url, domain.ErrUnexpectedCode, status)}
	}

	n, err := writeFile(dest, body)
	if err != nil {
		return TransferResult{Err: fmt.Errorf("save %s: %w", dest, err)}
	}
	return TransferResult{Bytes: n}
}

func writeFile(dest string, r io.Reader) (int64, error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".harvest-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, r)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	// CreateTemp uses 0600.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}
