package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
)

func newDownloadServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	})
	mux.HandleFunc("/truncated.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
	})
	mux.HandleFunc("/forbidden.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(t *testing.T) *HTTPDownloader {
	t.Helper()
	client := httpclient.NewRestyClient(5 * time.Second)
	t.Cleanup(client.Close)
	return NewDownloader(client)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".harvest-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDownloadWritesFile(t *testing.T) {
	srv := newDownloadServer(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "Starry Night_1941.1.jpg")

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/ok.jpg", dest)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(len("image-bytes")), res.Bytes)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	assertNoTempFiles(t, dir)
}

func TestDownloadOverwritesExistingFile(t *testing.T) {
	srv := newDownloadServer(t)
	dest := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("an older and longer image"), 0o644))

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/ok.jpg", dest)
	require.NoError(t, res.Err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestDownloadFailureLeavesNoPartialFile(t *testing.T) {
	srv := newDownloadServer(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "a.jpg")

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/truncated.jpg", dest)
	require.Error(t, res.Err)
	assert.NoFileExists(t, dest)
	assertNoTempFiles(t, dir)
}

func TestDownloadFailureKeepsPreviousFile(t *testing.T) {
	srv := newDownloadServer(t)
	dest := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/truncated.jpg", dest)
	require.Error(t, res.Err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestDownloadNon200IsTransferFault(t *testing.T) {
	srv := newDownloadServer(t)
	dest := filepath.Join(t.TempDir(), "a.jpg")

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/forbidden.jpg", dest)
	assert.ErrorIs(t, res.Err, domain.ErrUnexpectedCode)
	assert.Zero(t, res.Bytes)
	assert.NoFileExists(t, dest)
}

func TestDownloadMissingDirectoryIsTransferFault(t *testing.T) {
	srv := newDownloadServer(t)
	// A title containing a path separator points into a directory that does not exist.
	dest := filepath.Join(t.TempDir(), "Study/Sketch_12.jpg")

	res := newTestDownloader(t).Download(context.Background(), srv.URL+"/ok.jpg", dest)
	require.Error(t, res.Err)
	assert.NoFileExists(t, dest)
}
