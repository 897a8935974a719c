package provider

import (
	"context"
	"fmt"
	"log/slog"

	"finnews/internal/config"
	"finnews/internal/domain"
	"finnews/internal/ports"
	"finnews/internal/search"
)

// MultiSource implements ports.SearchClient by fanning one query out to the
// configured sources through their registered provider strategies.
type MultiSource struct {
	registry *search.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.SearchClient = (*MultiSource)(nil)

// NewMultiSource wires the provider registry with config-defined sources.
func NewMultiSource(reg *search.Registry, sources []config.SourceConfig, log *slog.Logger) *MultiSource {
	return &MultiSource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Search aggregates candidates across sources in configured order. A failing
// source is skipped so healthier ones still contribute; the error surfaces
// only when no source produced anything.
func (m *MultiSource) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("search registry is not configured")
	}

	m.debug("search", "query", query, "sources", len(m.sources))

	var (
		aggregated []domain.Candidate
		firstErr   error
	)
	for _, src := range m.sources {
		strategy, err := m.registry.Resolve(src.Provider)
		if err != nil {
			m.warn("skip source", "source", src.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("source %s: %w", src.Name, err)
			}
			continue
		}

		req := search.Request{
			Query:      query,
			SourceName: src.Name,
			Feeds:      toSearchFeeds(src.Feeds),
			Options:    src.Options,
		}

		results, err := strategy.Search(ctx, req)
		if err != nil {
			m.warn("source search failed", "source", src.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("search source %s: %w", src.Name, err)
			}
			continue
		}

		m.debug("source produced candidates", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	if len(aggregated) == 0 && firstErr != nil {
		return nil, firstErr
	}

	return aggregated, nil
}

func toSearchFeeds(cfg []config.FeedConfig) []search.Feed {
	feeds := make([]search.Feed, 0, len(cfg))
	for _, feed := range cfg {
		feeds = append(feeds, search.Feed{
			Name: feed.Name,
			URL:  feed.URL,
		})
	}
	return feeds
}

func (m *MultiSource) debug(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *MultiSource) warn(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
