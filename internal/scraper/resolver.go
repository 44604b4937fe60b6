package scraper

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
	"github.com/samvad-hq/artifact-harvester/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// PageImageResolver extracts the primary image of an HTML object page from its
// Open Graph or Twitter card tags.
type PageImageResolver struct {
	client httpclient.Client
}

// NewPageImageResolver constructs a resolver with the provided HTTP client.
func NewPageImageResolver(client httpclient.Client) *PageImageResolver {
	return &PageImageResolver{client: client}
}

// Resolve fetches pageURL and returns the absolute URL of its image.
func (r *PageImageResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	resp, err := r.client.Get(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("%w %d body: %s", domain.ErrUnexpectedCode, resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return "", err
	}
	if meta.ImageURL == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrNoPageImage, pageURL)
	}
	resolved := resolveURL(meta.ImageURL, pageURL)
	if resolved == "" {
		return "", fmt.Errorf("%w: unusable image reference %q", domain.ErrNoPageImage, meta.ImageURL)
	}
	return resolved, nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel, attr string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr(attr); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image:secure_url"]`, "content"),
			extract(`meta[property="og:image"]`, "content"),
			extract(`meta[name="twitter:image"]`, "content"),
			extract(`link[rel="image_src"]`, "href"),
		),
	}, nil
}

type pageMeta struct {
	ImageURL string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL makes ref absolute against base. It returns "" when either side
// cannot be parsed.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// isHTML reports whether a Content-Type header names an HTML document.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
