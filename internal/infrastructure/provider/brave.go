package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finnews/internal/config"
	"finnews/internal/domain"
	"finnews/internal/search"
)

const braveAPIBase = "https://api.search.brave.com/res/v1"

// BraveProvider queries the Brave Search API and maps results to candidates.
// It supports both the news and the plain web endpoint, which wrap their
// result lists differently.
type BraveProvider struct {
	client  *http.Client
	baseURL string
	cfg     config.BraveConfig
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration)
}

var _ search.Provider = (*BraveProvider)(nil)

// NewBraveProvider wires an HTTP client; a nil client gets a 10s default.
func NewBraveProvider(client *http.Client, cfg config.BraveConfig, log *slog.Logger) *BraveProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BraveProvider{
		client:  client,
		baseURL: braveAPIBase,
		cfg:     cfg,
		logger:  log,
		sleep:   sleepContext,
	}
}

// Name identifies the strategy inside the registry.
func (b *BraveProvider) Name() string {
	return "brave"
}

// Search issues one API call for the request query and pauses afterwards,
// whatever the response status, so consecutive calls stay under the provider
// rate limit.
func (b *BraveProvider) Search(ctx context.Context, req search.Request) ([]domain.Candidate, error) {
	if b.cfg.APIKey == "" {
		return nil, fmt.Errorf("brave provider misconfigured: missing api key")
	}

	kind := b.endpointKind(req)
	endpoint, err := b.buildSearchURL(req, kind)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", b.cfg.APIKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	// The rate-limit pause covers error responses too, 429 included.
	b.sleep(ctx, b.cfg.RequestDelayDuration())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned %s", resp.Status)
	}

	candidates, err := decodeCandidates(resp.Body, kind)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.URL == "" || isHomepageLink(cand.URL) {
			continue
		}
		kept = append(kept, cand)
	}

	b.debug("brave search done", "query", req.Query, "results", len(kept))
	return kept, nil
}

// endpointKind resolves which endpoint variant serves the request. Sources may
// pin one via their options, otherwise the provider-wide setting applies.
func (b *BraveProvider) endpointKind(req search.Request) string {
	if kind := req.Options["endpoint"]; kind != "" {
		return kind
	}
	return b.cfg.Endpoint
}

func (b *BraveProvider) buildSearchURL(req search.Request, kind string) (string, error) {
	path := "/news/search"
	if strings.EqualFold(kind, "web") {
		path = "/web/search"
	}

	parsed, err := url.Parse(b.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid brave endpoint: %w", err)
	}

	count := b.cfg.Count
	if req.Limit > 0 {
		count = req.Limit
	}

	query := parsed.Query()
	query.Set("q", applySiteFilters(req.Query, b.cfg.SiteFilters))
	if count > 0 {
		query.Set("count", strconv.Itoa(count))
	}
	if b.cfg.Freshness != "" {
		query.Set("freshness", b.cfg.Freshness)
	}
	if b.cfg.Lang != "" {
		query.Set("search_lang", b.cfg.Lang)
	}
	query.Set("text_format", "raw")
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func decodeCandidates(r io.Reader, endpoint string) ([]domain.Candidate, error) {
	if strings.EqualFold(endpoint, "web") {
		var payload struct {
			Web struct {
				Results []braveResult `json:"results"`
			} `json:"web"`
		}
		if err := json.NewDecoder(r).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode web results: %w", err)
		}
		return toCandidates(payload.Web.Results), nil
	}

	var payload struct {
		Results []braveResult `json:"results"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode news results: %w", err)
	}
	return toCandidates(payload.Results), nil
}

func toCandidates(results []braveResult) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(results))
	for _, res := range results {
		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(res.Title),
			URL:         strings.TrimSpace(res.URL),
			Description: strings.TrimSpace(res.Description),
		})
	}
	return candidates
}

// applySiteFilters narrows the query to trusted outlets via site: operators.
func applySiteFilters(query string, sites []string) string {
	if len(sites) == 0 {
		return query
	}

	parts := make([]string, 0, len(sites))
	for _, site := range sites {
		parts = append(parts, "site:"+site)
	}
	return query + " " + strings.Join(parts, " OR ")
}

// isHomepageLink reports bare domain results that carry no article body.
func isHomepageLink(raw string) bool {
	return strings.HasSuffix(raw, ".com") || strings.HasSuffix(raw, ".com/")
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (b *BraveProvider) debug(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
