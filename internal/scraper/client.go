// Package scraper provides the HTTP client used to fetch catalog pages.
// Requests are never retried: a failed fetch is reported to the caller once.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

// maxBodySize caps how much of a response body is read (10 MiB).
const maxBodySize = 10 << 20

// Client is an HTTP client for fetching and parsing HTML pages.
type Client struct {
	httpClient *http.Client
	userAgent  func() string
}

// NewClient creates a scraper client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: uarand.GetRandom,
	}
}

// NewClientWithHTTP wraps an existing http.Client (used by tests).
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		userAgent:  uarand.GetRandom,
	}
}

// Get performs a single GET request.
// Non-2xx responses are returned as *errors.ScraperError with the body closed.
// Caller is responsible for closing the response body on success.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domerrors.NewScraperError(url, 0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-CL,es;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domerrors.NewScraperError(url, 0, fmt.Errorf("request failed: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, domerrors.NewScraperError(url, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return resp, nil
}

// GetDocument performs a GET request and parses the response as HTML.
// Gzip bodies are decompressed and Latin-1 bodies are decoded to UTF-8.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = io.LimitReader(resp.Body, maxBodySize)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, domerrors.NewScraperError(url, resp.StatusCode, fmt.Errorf("failed to decompress gzip: %w", err))
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	if enc := charsetDecoder(resp.Header.Get("Content-Type")); enc != nil {
		reader = transform.NewReader(reader, enc.NewDecoder())
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, domerrors.NewScraperError(url, resp.StatusCode, fmt.Errorf("failed to parse HTML: %w", err))
	}

	return doc, nil
}

// charsetDecoder returns the decoder for single-byte Western charsets named in
// a Content-Type header, or nil when the body is UTF-8 (or unspecified).
func charsetDecoder(contentType string) encoding.Encoding {
	ct := strings.ToUpper(contentType)
	switch {
	case strings.Contains(ct, "ISO-8859-1"), strings.Contains(ct, "LATIN1"):
		return charmap.ISO8859_1
	case strings.Contains(ct, "WINDOWS-1252"), strings.Contains(ct, "CP1252"):
		return charmap.Windows1252
	default:
		return nil
	}
}

// IsTimeout reports whether err is a request timeout or deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
