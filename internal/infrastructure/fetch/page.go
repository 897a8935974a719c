package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"finnews/internal/config"
	"finnews/internal/ports"
)

// PageFetcher downloads article pages and reduces them to readable text.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	minLength int
	logger    *slog.Logger
}

var _ ports.ContentFetcher = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client; a nil client gets the configured
// timeout.
func NewPageFetcher(client *http.Client, cfg config.FetcherConfig, log *slog.Logger) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	return &PageFetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		minLength: cfg.MinTextLength,
		logger:    log,
	}
}

// Fetch returns the cleaned article text. An empty string with a nil error
// means the page had no usable body.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := f.extractText(body, pageURL)
	if utf8.RuneCountInString(text) < f.minLength {
		return "", nil
	}

	return text, nil
}

// extractText prefers the readability extraction and falls back to a plain
// markup strip when the page defeats it.
func (f *PageFetcher) extractText(body []byte, pageURL string) string {
	parsed, _ := url.Parse(pageURL)

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		f.debug("readability failed", "url", pageURL, "error", err)
	} else if text := normalizeLines(article.TextContent); text != "" {
		return text
	}

	return stripMarkup(body)
}

// stripMarkup removes non-content regions and joins the remaining text lines.
func stripMarkup(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()
	return normalizeLines(doc.Find("body").Text())
}

func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func (f *PageFetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
