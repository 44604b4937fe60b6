package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/internal/logger"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body        []byte
	statusCode  int
	contentType string
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }
func (s stubHTTPResponse) Header(key string) string {
	if http.CanonicalHeaderKey(key) == "Content-Type" {
		return s.contentType
	}
	return ""
}

// stubHTTPClient returns a single response or error for every request.
type stubHTTPClient struct {
	resp httpclient.Response
	err  error
	urls []string
}

func (s *stubHTTPClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.urls = append(s.urls, url)
	return s.resp, s.err
}

func (s *stubHTTPClient) Head(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.urls = append(s.urls, url)
	return s.resp, s.err
}

func TestProbeExistsOnlyFor200(t *testing.T) {
	cases := []struct {
		status int
		exists bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, false},
		{http.StatusMovedPermanently, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: tc.status, contentType: "image/jpeg"}}

			res := NewProber(client, logger.NewWithCore(core)).Probe(context.Background(), "https://images.example/a.jpg")
			assert.Equal(t, tc.exists, res.Exists)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, "image/jpeg", res.ContentType)

			if tc.exists {
				assert.NoError(t, res.Err)
				assert.Zero(t, logs.Len())
				return
			}
			assert.ErrorIs(t, res.Err, domain.ErrUnexpectedCode)
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		})
	}
}

func TestProbeRequestErrorIsNotExists(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := &stubHTTPClient{err: errors.New("dial tcp: connection refused")}

	res := NewProber(client, logger.NewWithCore(core)).Probe(context.Background(), "https://offline.example/a.jpg")
	assert.False(t, res.Exists)
	assert.Zero(t, res.StatusCode)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "connection refused")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "image probe failed", logs.All()[0].Message)
}

func TestProbeWithoutLogger(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: http.StatusNotFound}}
	res := NewProber(client, nil).Probe(context.Background(), "https://images.example/x.jpg")
	assert.False(t, res.Exists)
}
