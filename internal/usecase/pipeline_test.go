package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"finnews/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSearch struct {
	results map[string][]domain.Candidate
	errs    map[string]error
	calls   []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]domain.Candidate, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

type fakeFetcher struct {
	content map[string]string
	errs    map[string]error
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		content: map[string]string{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls[url]++
	if err := f.errs[url]; err != nil {
		return "", err
	}
	return f.content[url], nil
}

func (f *fakeFetcher) totalCalls() int {
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type fakeSummarizer struct {
	summaries map[string]string
	errs      map[string]error
	calls     int
	sessions  int
	excerpts  []string
}

func (f *fakeSummarizer) StartSession() {
	f.sessions++
}

func (f *fakeSummarizer) Summarize(_ context.Context, title, excerpt string) (string, error) {
	f.calls++
	f.excerpts = append(f.excerpts, excerpt)
	if err := f.errs[title]; err != nil {
		return "", err
	}
	if summary, ok := f.summaries[title]; ok {
		return summary, nil
	}
	return strings.Repeat("s", 80), nil
}

type fakeStore struct {
	saved []domain.ArticleRecord
	err   error
}

func (f *fakeStore) SaveArticle(_ context.Context, record domain.ArticleRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

type fakeQueue struct {
	queued []domain.ArticleRecord
}

func (f *fakeQueue) Enqueue(_ context.Context, record domain.ArticleRecord) error {
	f.queued = append(f.queued, record)
	return nil
}

type fakeNotifier struct {
	digests [][]domain.ArticleRecord
}

func (f *fakeNotifier) PublishDigest(_ context.Context, records []domain.ArticleRecord) error {
	f.digests = append(f.digests, records)
	return nil
}

type fakeRecorder struct {
	accepted []domain.ArticleRecord
	rejected map[domain.RejectReason]int
	errored  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{rejected: map[domain.RejectReason]int{}}
}

func (f *fakeRecorder) Accepted(record domain.ArticleRecord) {
	f.accepted = append(f.accepted, record)
}

func (f *fakeRecorder) Rejected(_ domain.Candidate, reason domain.RejectReason) {
	f.rejected[reason]++
}

func (f *fakeRecorder) Errored(domain.Candidate, error) {
	f.errored++
}

// newTestPipeline swaps the real sleep for a recording stub so tests run
// instantly and can still assert which delays were applied.
func newTestPipeline(deps PipelineDeps) (*Pipeline, *[]time.Duration) {
	if deps.Logger == nil {
		deps.Logger = testLogger()
	}
	p := NewPipeline(deps)

	sleeps := &[]time.Duration{}
	p.sleep = func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return p, sleeps
}

func cand(url string) domain.Candidate {
	return domain.Candidate{Title: "title " + url, URL: url, Description: "desc"}
}

func longContent() string {
	return strings.Repeat("a", 1000)
}

func TestRunStopsAtQuotaWithoutSearchingFurther(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://x.com")},
		"b": {cand("http://y.com/article")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://x.com"] = longContent()
	summarizer := &fakeSummarizer{}

	p, sleeps := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: summarizer,
	})

	records, err := p.Run(context.Background(), []string{"a", "b"}, 1)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].URL != "http://x.com" {
		t.Fatalf("unexpected url: %s", records[0].URL)
	}
	if len(search.calls) != 1 || search.calls[0] != "a" {
		t.Fatalf("expected only query a to be searched, got %v", search.calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != p.pacingDelay {
		t.Fatalf("expected one pacing delay, got %v", *sleeps)
	}
}

func TestRunDeduplicatesAcrossQueries(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/news")},
		"b": {cand("http://u1.org/news"), cand("http://u2.org/news")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/news"] = longContent()
	fetcher.content["http://u2.org/news"] = longContent()
	summarizer := &fakeSummarizer{}
	notifier := &fakeNotifier{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Notifier:   notifier,
	})

	records, err := p.Run(context.Background(), []string{"a", "b"}, 5)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	urls := map[string]int{}
	for _, rec := range records {
		urls[rec.URL]++
	}
	for url, n := range urls {
		if n != 1 {
			t.Fatalf("url %s appears %d times in results", url, n)
		}
	}

	if fetcher.calls["http://u1.org/news"] != 1 {
		t.Fatalf("duplicate url fetched %d times", fetcher.calls["http://u1.org/news"])
	}
	if summarizer.calls != 2 {
		t.Fatalf("expected 2 summarizer calls, got %d", summarizer.calls)
	}

	if len(notifier.digests) != 1 || len(notifier.digests[0]) != 2 {
		t.Fatalf("expected one digest with 2 records, got %v", notifier.digests)
	}
}

func TestRunMarksSeenBeforeQualityGate(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://short.org/a")},
		"b": {cand("http://short.org/a")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://short.org/a"] = "too short"
	recorder := newFakeRecorder()
	notifier := &fakeNotifier{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
		Recorder:   recorder,
		Notifier:   notifier,
	})

	records, err := p.Run(context.Background(), []string{"a", "b"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if fetcher.calls["http://short.org/a"] != 1 {
		t.Fatalf("rejected url fetched %d times, want 1", fetcher.calls["http://short.org/a"])
	}
	if recorder.rejected[domain.RejectShortContent] != 1 {
		t.Fatalf("expected one short-content rejection, got %d", recorder.rejected[domain.RejectShortContent])
	}
	if len(notifier.digests) != 0 {
		t.Fatalf("empty run must not publish a digest")
	}
}

func TestRunExcludesCandidateOnEmptyFetch(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://empty.org/x"), cand("http://good.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://good.org/x"] = longContent()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
	})

	records, err := p.Run(context.Background(), []string{"a"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 || records[0].URL != "http://good.org/x" {
		t.Fatalf("expected only the good candidate, got %v", records)
	}
}

func TestRunFetchErrorContinuesWithoutBackoff(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://down.org/x"), cand("http://good.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.errs["http://down.org/x"] = errors.New("connection refused")
	fetcher.content["http://good.org/x"] = longContent()
	recorder := newFakeRecorder()

	p, sleeps := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
		Recorder:   recorder,
	})

	records, err := p.Run(context.Background(), []string{"a"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if recorder.errored != 1 {
		t.Fatalf("expected 1 errored candidate, got %d", recorder.errored)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != p.pacingDelay {
		t.Fatalf("fetch errors must not back off, got sleeps %v", *sleeps)
	}
}

func TestRunSummarizerFailureBacksOffAndContinues(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x"), cand("http://u2.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()
	fetcher.content["http://u2.org/x"] = longContent()
	summarizer := &fakeSummarizer{errs: map[string]error{
		"title http://u1.org/x": &domain.SummarizationError{Provider: "fake", Err: errors.New("rate limited")},
	}}
	recorder := newFakeRecorder()

	p, sleeps := newTestPipeline(PipelineDeps{
		Search:       search,
		Fetcher:      fetcher,
		Summarizer:   summarizer,
		Recorder:     recorder,
		PacingDelay:  2 * time.Second,
		BackoffDelay: 7 * time.Second,
	})

	records, err := p.Run(context.Background(), []string{"a"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 || records[0].URL != "http://u2.org/x" {
		t.Fatalf("expected the second candidate to be accepted, got %v", records)
	}
	if recorder.errored != 1 {
		t.Fatalf("expected 1 errored candidate, got %d", recorder.errored)
	}

	want := []time.Duration{7 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Fatalf("expected backoff then pacing %v, got %v", want, *sleeps)
	}
}

func TestRunStartsFreshSummarizerSessionPerRun(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x"), cand("http://u2.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()
	fetcher.content["http://u2.org/x"] = longContent()
	summarizer := &fakeSummarizer{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: summarizer,
	})

	if _, err := p.Run(context.Background(), []string{"a"}, 3); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if summarizer.sessions != 1 {
		t.Fatalf("expected one session for the whole run, got %d", summarizer.sessions)
	}
	if summarizer.calls != 2 {
		t.Fatalf("expected both articles summarized within that session, got %d calls", summarizer.calls)
	}

	if _, err := p.Run(context.Background(), []string{"a"}, 3); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if summarizer.sessions != 2 {
		t.Fatalf("each run must open its own session, got %d", summarizer.sessions)
	}
}

func TestRunRejectsShortSummary(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x"), cand("http://u2.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()
	fetcher.content["http://u2.org/x"] = longContent()
	summarizer := &fakeSummarizer{summaries: map[string]string{
		"title http://u1.org/x": "  thin  ",
	}}
	recorder := newFakeRecorder()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Recorder:   recorder,
	})

	records, err := p.Run(context.Background(), []string{"a"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 || records[0].URL != "http://u2.org/x" {
		t.Fatalf("expected only the well-summarized candidate, got %v", records)
	}
	if recorder.rejected[domain.RejectShortSummary] != 1 {
		t.Fatalf("expected one short-summary rejection, got %d", recorder.rejected[domain.RejectShortSummary])
	}
	for _, rec := range records {
		if len(strings.TrimSpace(rec.Summary)) < p.minSummaryLength {
			t.Fatalf("accepted summary below threshold: %q", rec.Summary)
		}
	}
}

func TestRunStoreFailureDoesNotRollBackAcceptance(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()
	store := &fakeStore{err: errors.New("db down")}
	queue := &fakeQueue{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
		Store:      store,
		Queue:      queue,
	})

	records, err := p.Run(context.Background(), []string{"a"}, 2)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("store failure must not drop the record, got %d records", len(records))
	}
	if len(store.saved) != 0 {
		t.Fatalf("store unexpectedly saved %d records", len(store.saved))
	}
	if len(queue.queued) != 1 {
		t.Fatalf("expected queue handoff despite store failure, got %d", len(queue.queued))
	}
}

func TestRunQuotaBoundsCandidateProcessing(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x"), cand("http://u2.org/x"), cand("http://u3.org/x")},
	}}
	fetcher := newFakeFetcher()
	for _, url := range []string{"http://u1.org/x", "http://u2.org/x", "http://u3.org/x"} {
		fetcher.content[url] = longContent()
	}
	summarizer := &fakeSummarizer{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: summarizer,
	})

	records, err := p.Run(context.Background(), []string{"a"}, 2)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) > 2 {
		t.Fatalf("quota exceeded: %d records", len(records))
	}
	if fetcher.totalCalls() != 2 {
		t.Fatalf("candidates beyond the quota must not be fetched, got %d fetches", fetcher.totalCalls())
	}
	if summarizer.calls != 2 {
		t.Fatalf("expected 2 summarizer calls, got %d", summarizer.calls)
	}
}

func TestRunSearchFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{
		results: map[string][]domain.Candidate{
			"b": {cand("http://u1.org/x")},
		},
		errs: map[string]error{"a": errors.New("search api 500")},
	}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
	})

	records, err := p.Run(context.Background(), []string{"a", "b"}, 2)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected the second query to still produce a record, got %d", len(records))
	}
	if len(search.calls) != 2 {
		t.Fatalf("expected both queries searched, got %v", search.calls)
	}
}

func TestRunSkipsCandidatesWithoutURL(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {
			{Title: "no url"},
			cand("http://u1.org/x"),
		},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
	})

	records, err := p.Run(context.Background(), []string{"a"}, 3)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if fetcher.totalCalls() != 1 {
		t.Fatalf("url-less candidate must not be fetched, got %d fetches", fetcher.totalCalls())
	}
}

func TestRunReturnsAccumulatedOnCancellation(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x"), cand("http://u2.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = longContent()
	fetcher.content["http://u2.org/x"] = longContent()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(context.Context, time.Duration) { cancel() }

	records, err := p.Run(ctx, []string{"a"}, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected the record accepted before cancellation, got %d", len(records))
	}
}

func TestRunDerivesSourceFromAuthority(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("https://WWW.Bloomberg.com/markets/liquidity")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["https://WWW.Bloomberg.com/markets/liquidity"] = longContent()

	p, _ := newTestPipeline(PipelineDeps{
		Search:     search,
		Fetcher:    fetcher,
		Summarizer: &fakeSummarizer{},
	})

	records, err := p.Run(context.Background(), []string{"a"}, 1)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Source != "WWW.Bloomberg.com" {
		t.Fatalf("expected case-preserved authority, got %s", records[0].Source)
	}
	if records[0].RunID == "" || records[0].CreatedAt.IsZero() {
		t.Fatalf("record missing run metadata: %+v", records[0])
	}
}

func TestRunBoundsExcerptPassedToSummarizer(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]domain.Candidate{
		"a": {cand("http://u1.org/x")},
	}}
	fetcher := newFakeFetcher()
	fetcher.content["http://u1.org/x"] = strings.Repeat("b", 9000)
	summarizer := &fakeSummarizer{}

	p, _ := newTestPipeline(PipelineDeps{
		Search:        search,
		Fetcher:       fetcher,
		Summarizer:    summarizer,
		ExcerptLength: 8000,
	})

	if _, err := p.Run(context.Background(), []string{"a"}, 1); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(summarizer.excerpts) != 1 {
		t.Fatalf("expected 1 excerpt, got %d", len(summarizer.excerpts))
	}
	if got := len([]rune(summarizer.excerpts[0])); got != 8000 {
		t.Fatalf("expected 8000-rune excerpt, got %d", got)
	}
}

func TestExcerptCutsOnRuneBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("€", 20)
	if got := excerpt(text, 5); got != strings.Repeat("€", 5) {
		t.Fatalf("unexpected excerpt: %q", got)
	}
	if got := excerpt("short", 10); got != "short" {
		t.Fatalf("short text must pass through, got %q", got)
	}
	if got := excerpt("anything", 0); got != "anything" {
		t.Fatalf("zero limit must pass through, got %q", got)
	}
}

func TestNewPipelineAppliesDefaults(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{Logger: testLogger()})

	if p.minContentLength != 500 || p.minSummaryLength != 50 || p.excerptLength != 8000 {
		t.Fatalf("unexpected threshold defaults: %d %d %d",
			p.minContentLength, p.minSummaryLength, p.excerptLength)
	}
	if p.pacingDelay != 3*time.Second || p.backoffDelay != 5*time.Second {
		t.Fatalf("unexpected delay defaults: %v %v", p.pacingDelay, p.backoffDelay)
	}
}
