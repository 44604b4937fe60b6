package httpclient

import (
	"context"
	"io"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header(key string) string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Head(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Streamer opens a GET response body without buffering it in memory. The
// caller must close the returned body.
type Streamer interface {
	Stream(ctx context.Context, url string, headers map[string]string) (status int, body io.ReadCloser, err error)
}
