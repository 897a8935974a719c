package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

const (
	defaultMinContentLength = 500
	defaultMinSummaryLength = 50
	defaultExcerptLength    = 8000
	defaultPacingDelay      = 3 * time.Second
	defaultBackoffDelay     = 5 * time.Second
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
// Search, Fetcher and Summarizer are required; the rest degrade to no-ops
// when absent.
type PipelineDeps struct {
	Search     ports.SearchClient
	Fetcher    ports.ContentFetcher
	Summarizer ports.Summarizer
	Store      ports.ArticleStore
	Queue      ports.AcceptedQueue
	Notifier   ports.Notifier
	Recorder   ports.Recorder
	Logger     *slog.Logger

	MinContentLength int
	MinSummaryLength int
	ExcerptLength    int
	PacingDelay      time.Duration
	BackoffDelay     time.Duration
}

// Pipeline implements the news-ingestion workflow: search-query iteration,
// URL dedup, content-quality gating, summarization with backoff, and
// bounded-quota collection.
type Pipeline struct {
	search     ports.SearchClient
	fetcher    ports.ContentFetcher
	summarizer ports.Summarizer
	store      ports.ArticleStore
	queue      ports.AcceptedQueue
	notifier   ports.Notifier
	recorder   ports.Recorder
	logger     *slog.Logger

	minContentLength int
	minSummaryLength int
	excerptLength    int
	pacingDelay      time.Duration
	backoffDelay     time.Duration

	sleep func(context.Context, time.Duration)
}

// NewPipeline constructs the orchestration component, applying defaults for
// unset thresholds and delays.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MinContentLength <= 0 {
		deps.MinContentLength = defaultMinContentLength
	}
	if deps.MinSummaryLength <= 0 {
		deps.MinSummaryLength = defaultMinSummaryLength
	}
	if deps.ExcerptLength <= 0 {
		deps.ExcerptLength = defaultExcerptLength
	}
	if deps.PacingDelay <= 0 {
		deps.PacingDelay = defaultPacingDelay
	}
	if deps.BackoffDelay <= 0 {
		deps.BackoffDelay = defaultBackoffDelay
	}

	return &Pipeline{
		search:           deps.Search,
		fetcher:          deps.Fetcher,
		summarizer:       deps.Summarizer,
		store:            deps.Store,
		queue:            deps.Queue,
		notifier:         deps.Notifier,
		recorder:         deps.Recorder,
		logger:           deps.Logger,
		minContentLength: deps.MinContentLength,
		minSummaryLength: deps.MinSummaryLength,
		excerptLength:    deps.ExcerptLength,
		pacingDelay:      deps.PacingDelay,
		backoffDelay:     deps.BackoffDelay,
		sleep:            sleepContext,
	}
}

// Run walks queries in priority order until the quota of accepted articles is
// reached or everything is exhausted. Capability failures never abort the
// run: each is logged and downgraded at its call site, and the accumulated
// records are always returned. The only error Run reports is context
// cancellation.
func (p *Pipeline) Run(ctx context.Context, queries []string, quota int) ([]domain.ArticleRecord, error) {
	if p.search == nil || p.fetcher == nil || p.summarizer == nil {
		return nil, nil
	}

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	p.summarizer.StartSession()

	seen := make(map[string]struct{})
	accepted := make([]domain.ArticleRecord, 0)

	logger.Info("ingestion run started", "queries", len(queries), "quota", quota)

	for _, query := range queries {
		if len(accepted) >= quota {
			break
		}
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		candidates, err := p.search.Search(ctx, query)
		if err != nil {
			logger.Warn("search degraded to empty result", "query", query, "error", err)
			continue
		}
		logger.Debug("query produced candidates", "query", query, "count", len(candidates))

		for _, cand := range candidates {
			if cand.URL == "" {
				continue
			}
			if _, dup := seen[cand.URL]; dup {
				continue
			}
			if len(accepted) >= quota {
				break
			}
			if err := ctx.Err(); err != nil {
				return accepted, err
			}

			// Marked at first sight, before any gating: a URL rejected
			// here must not cost a second fetch when another query
			// surfaces it again.
			seen[cand.URL] = struct{}{}

			record, ok := p.processCandidate(ctx, logger, cand, runID)
			if !ok {
				continue
			}

			accepted = append(accepted, record)
			p.recordAccepted(record)
			logger.Info("article accepted", "url", record.URL, "source", record.Source, "accepted", len(accepted))

			p.persist(ctx, logger, record)
			p.sleep(ctx, p.pacingDelay)
		}
	}

	p.notify(ctx, logger, accepted)
	logger.Info("ingestion run finished", "accepted", len(accepted))

	return accepted, nil
}

// processCandidate runs one candidate through fetch, both quality gates and
// summarization. The bool result reports acceptance.
func (p *Pipeline) processCandidate(ctx context.Context, logger *slog.Logger, cand domain.Candidate, runID string) (domain.ArticleRecord, bool) {
	content, err := p.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		logger.Warn("fetch failed", "url", cand.URL, "error", err)
		p.recordErrored(cand, err)
		return domain.ArticleRecord{}, false
	}

	if utf8.RuneCountInString(content) < p.minContentLength {
		logger.Debug("content below threshold", "url", cand.URL, "length", utf8.RuneCountInString(content))
		p.recordRejected(cand, domain.RejectShortContent)
		return domain.ArticleRecord{}, false
	}

	summary, err := p.summarizer.Summarize(ctx, cand.Title, excerpt(content, p.excerptLength))
	if err != nil {
		logger.Warn("summarization failed, backing off", "url", cand.URL, "error", err)
		p.recordErrored(cand, err)
		p.sleep(ctx, p.backoffDelay)
		return domain.ArticleRecord{}, false
	}

	summary = strings.TrimSpace(summary)
	if utf8.RuneCountInString(summary) < p.minSummaryLength {
		logger.Debug("summary below threshold", "url", cand.URL, "length", utf8.RuneCountInString(summary))
		p.recordRejected(cand, domain.RejectShortSummary)
		return domain.ArticleRecord{}, false
	}

	return domain.ArticleRecord{
		Title:     cand.Title,
		URL:       cand.URL,
		Source:    domain.SourceFromURL(cand.URL),
		Summary:   summary,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}, true
}

// persist hands the record to storage and the accepted queue. Neither
// failure rolls back the acceptance.
func (p *Pipeline) persist(ctx context.Context, logger *slog.Logger, record domain.ArticleRecord) {
	if p.store != nil {
		if err := p.store.SaveArticle(ctx, record); err != nil {
			logger.Warn("store failed, keeping record in results", "url", record.URL, "error", err)
		}
	}

	if p.queue != nil {
		if err := p.queue.Enqueue(ctx, record); err != nil {
			logger.Warn("queue handoff failed", "url", record.URL, "error", err)
		}
	}
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, records []domain.ArticleRecord) {
	if p.notifier == nil || len(records) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, records); err != nil {
		logger.Warn("digest publish failed", "error", err)
	}
}

func (p *Pipeline) recordAccepted(record domain.ArticleRecord) {
	if p.recorder != nil {
		p.recorder.Accepted(record)
	}
}

func (p *Pipeline) recordRejected(cand domain.Candidate, reason domain.RejectReason) {
	if p.recorder != nil {
		p.recorder.Rejected(cand, reason)
	}
}

func (p *Pipeline) recordErrored(cand domain.Candidate, err error) {
	if p.recorder != nil {
		p.recorder.Errored(cand, err)
	}
}

// excerpt bounds the text submitted to the summarizer, cutting on rune
// boundaries.
func excerpt(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
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
