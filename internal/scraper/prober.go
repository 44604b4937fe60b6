package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/internal/logger"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
)

// ProbeResult is the outcome of an existence check. Exists is true only for a 200 response.
type ProbeResult struct {
	Exists      bool
	StatusCode  int
	ContentType string
	Err         error
}

// HTTPProber probes URLs with HEAD requests.
type HTTPProber struct {
	client httpclient.Client
	log    logger.Logger
}

// NewProber builds a prober on the shared HTTP client.
func NewProber(client httpclient.Client, log logger.Logger) *HTTPProber {
	return &HTTPProber{client: client, log: logger.Ensure(log)}
}

// Probe issues a HEAD request for url. Every non-200 outcome, including
// request errors, is logged once and reported as not existing.
func (p *HTTPProber) Probe(ctx context.Context, url string) ProbeResult {
	resp, err := p.client.Head(ctx, url, nil)
	if err != nil {
		res := ProbeResult{Err: fmt.Errorf("head %s: %w", url, err)}
		p.log.WarnObj("image probe failed", "probe_error", map[string]any{
			"url":   url,
			"error": res.Err.Error(),
		})
		return res
	}

	res := ProbeResult{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header("Content-Type"),
		Exists:      resp.StatusCode() == http.StatusOK,
	}
	if !res.Exists {
		res.Err = fmt.Errorf("head %s: %w %d", url, domain.ErrUnexpectedCode, res.StatusCode)
		p.log.WarnObj("image probe rejected", "probe_error", map[string]any{
			"url":    url,
			"status": res.StatusCode,
			"error":  res.Err.Error(),
		})
	}
	return res
}
