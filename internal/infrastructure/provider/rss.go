package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"finnews/internal/domain"
	"finnews/internal/search"
)

// RSSProvider surfaces feed entries as search candidates, filtered by the
// request query terms.
type RSSProvider struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ search.Provider = (*RSSProvider)(nil)

// NewRSSProvider builds a feed-backed provider.
func NewRSSProvider(log *slog.Logger) *RSSProvider {
	return &RSSProvider{parser: gofeed.NewParser(), logger: log}
}

// Name identifies the strategy inside the registry.
func (r *RSSProvider) Name() string {
	return "rss"
}

// Search walks the request feeds in order. A broken feed is skipped so the
// remaining feeds still contribute.
func (r *RSSProvider) Search(ctx context.Context, req search.Request) ([]domain.Candidate, error) {
	if len(req.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured for source %s", req.SourceName)
	}

	terms := strings.Fields(strings.ToLower(req.Query))

	var candidates []domain.Candidate
	for _, feed := range req.Feeds {
		parsed, err := r.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			r.warn("skip broken feed", "feed", feed.Name, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			if req.Limit > 0 && len(candidates) >= req.Limit {
				return candidates, nil
			}
			if item == nil || !matchesTerms(item, terms) {
				continue
			}
			candidates = append(candidates, domain.Candidate{
				Title:       strings.TrimSpace(item.Title),
				URL:         strings.TrimSpace(item.Link),
				Description: strings.TrimSpace(item.Description),
			})
		}
	}

	return candidates, nil
}

// matchesTerms keeps entries mentioning at least one query term. An empty
// query keeps everything.
func matchesTerms(item *gofeed.Item, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Description)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func (r *RSSProvider) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
