// Package extractor fetches web pages and reduces them to a compact summary
// suitable for a generation prompt.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/validations"
)

const (
	maxBodyBytes = 5 << 20
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type Config struct {
	Timeout       time.Duration
	MainTextLimit int
}

func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		MainTextLimit: 1000,
	}
}

// Extractor fetches pages over HTTP. It holds no per-request state.
type Extractor struct {
	config     Config
	httpClient *http.Client
}

func New(config Config) *Extractor {
	return &Extractor{
		config: config,
		// The default client follows up to 10 redirects.
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Extract never fails: fetch and parse errors produce a degraded summary
// carrying only the domain and the error.
func (e *Extractor) Extract(ctx context.Context, link string) ContentSummary {
	logger := loggercontext.Logger(ctx)
	body, finalURL, err := e.fetch(ctx, link)
	if err != nil {
		logger.Warnw("fetching page content", "link", link, "error", err)
		return degraded(link, err)
	}
	summary, err := Parse(body, finalURL, e.config.MainTextLimit)
	if err != nil {
		logger.Warnw("parsing page content", "link", link, "error", err)
		return degraded(link, err)
	}
	summary.Domain = validations.Domain(link)
	return summary
}

func degraded(link string, err error) ContentSummary {
	return ContentSummary{
		Domain: validations.Domain(link),
		Err:    err.Error(),
	}
}

func (e *Extractor) fetch(ctx context.Context, link string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	// Accept any 2xx status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("decode charset: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return buf.Bytes(), resp.Request.URL, nil
}

// ContentSummary is the reduced representation of a fetched page.
type ContentSummary struct {
	Title       string
	Description string
	MainText    string
	ListItems   []string
	Keywords    []string
	Domain      string
	SiteName    string
	Language    string
	// Err is set when the page could not be fetched or parsed.
	Err string
}

func (c ContentSummary) Degraded() bool {
	return c.Err != ""
}

// Render formats the summary as prompt input.
func (c ContentSummary) Render(link string) string {
	if c.Degraded() {
		return fmt.Sprintf("Could not fetch content from %s. This appears to be from %s.", link, c.Domain)
	}
	lines := []string{
		"Title: " + c.Title,
		"Description: " + c.Description,
	}
	if c.SiteName != "" {
		lines = append(lines, "Site: "+c.SiteName)
	}
	lines = append(lines, "Content: "+c.MainText)
	if len(c.ListItems) > 0 {
		lines = append(lines, "List Items: "+strings.Join(c.ListItems, ", "))
	}
	if len(c.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(c.Keywords, ", "))
	}
	return strings.Join(lines, "\n")
}
