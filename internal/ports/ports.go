package ports

import (
	"context"
	"time"

	"finnews/internal/domain"
)

// SearchClient returns ranked article candidates for one search query.
// Implementations tolerate provider outages by degrading to an empty slice;
// the pipeline additionally downgrades any returned error to "no results".
type SearchClient interface {
	Search(ctx context.Context, query string) ([]domain.Candidate, error)
}

// ContentFetcher retrieves the cleaned plain-text body of an article page.
// An empty string (with or without an error) means the page is unusable.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Summarizer condenses an article excerpt into a short narrative summary.
// StartSession opens a fresh conversational context; the pipeline calls it
// once at the top of each run, so chat history never spans runs. Stateless
// implementations treat it as a no-op. Transport failures are reported as
// *domain.SummarizationError.
type Summarizer interface {
	StartSession()
	Summarize(ctx context.Context, title, excerpt string) (string, error)
}

// ArticleStore persists accepted records. Implementations validate required
// fields and treat an already-stored URL as a silent no-op.
type ArticleStore interface {
	SaveArticle(ctx context.Context, record domain.ArticleRecord) error
}

// PriceStore persists market price observations.
type PriceStore interface {
	SavePrice(ctx context.Context, point domain.PricePoint) error
}

// AcceptedQueue hands accepted records to downstream consumers.
type AcceptedQueue interface {
	Enqueue(ctx context.Context, record domain.ArticleRecord) error
}

// Recorder observes candidate outcomes at the pipeline extension points.
// Callers follow the nil-safe pattern: if recorder != nil { ... }.
type Recorder interface {
	Accepted(record domain.ArticleRecord)
	Rejected(candidate domain.Candidate, reason domain.RejectReason)
	Errored(candidate domain.Candidate, err error)
}

// Notifier publishes the end-of-run digest of accepted articles.
type Notifier interface {
	PublishDigest(ctx context.Context, records []domain.ArticleRecord) error
}

// QuoteSource reports the current spot price from a market data provider.
type QuoteSource interface {
	Latest(ctx context.Context) (domain.PricePoint, error)
}

// Scheduler executes registered jobs on cron expressions.
type Scheduler interface {
	Register(expr string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
