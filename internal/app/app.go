package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"finnews/internal/config"
	"finnews/internal/infrastructure/fetch"
	"finnews/internal/infrastructure/llm"
	"finnews/internal/infrastructure/market"
	"finnews/internal/infrastructure/provider"
	"finnews/internal/infrastructure/queue"
	"finnews/internal/infrastructure/scheduler"
	"finnews/internal/infrastructure/storage"
	"finnews/internal/infrastructure/telegram"
	"finnews/internal/logging"
	"finnews/internal/observe"
	"finnews/internal/ports"
	"finnews/internal/search"
	"finnews/internal/usecase"
)

// Application wires configuration to use cases and owns held connections.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	tracker  *usecase.Tracker
	sched    *usecase.Scheduler
	closers  []func() error
}

// New assembles all adapters. Missing optional integrations (database,
// Redis, Telegram, market tracking) are left out; missing required
// credentials or pipeline settings are fatal.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	registry := search.NewRegistry()
	registry.Register(provider.NewBraveProvider(nil, cfg.Search.Brave, baseLogger.With("component", "provider.brave")))
	registry.Register(provider.NewRSSProvider(baseLogger.With("component", "provider.rss")))

	source := provider.NewMultiSource(registry, cfg.Search.Sources, baseLogger.With("component", "source"))
	fetcher := fetch.NewPageFetcher(nil, cfg.Fetcher, baseLogger.With("component", "fetcher"))

	summarizer, err := a.buildSummarizer(ctx, baseLogger)
	if err != nil {
		return nil, err
	}

	var (
		articleStore ports.ArticleStore
		priceStore   ports.PriceStore
	)
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		pg := storage.NewPostgresStore(db)
		articleStore, priceStore = pg, pg
		a.closers = append(a.closers, db.Close)
	}

	var acceptedQueue ports.AcceptedQueue
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		acceptedQueue = queue.NewRedisQueue(rdb, cfg.Redis.QueueKey)
		a.closers = append(a.closers, rdb.Close)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Search:           source,
		Fetcher:          fetcher,
		Summarizer:       summarizer,
		Store:            articleStore,
		Queue:            acceptedQueue,
		Notifier:         notifier,
		Recorder:         observe.NewLogRecorder(baseLogger.With("component", "outcomes")),
		Logger:           baseLogger.With("component", "pipeline"),
		MinContentLength: cfg.Pipeline.MinContentLength,
		MinSummaryLength: cfg.Pipeline.MinSummaryLength,
		ExcerptLength:    cfg.Pipeline.ExcerptLength,
		PacingDelay:      cfg.Pipeline.PacingDuration(),
		BackoffDelay:     cfg.Pipeline.BackoffDuration(),
	})

	if cfg.Market.IsEnabled() {
		quotes := market.NewCoinGeckoClient(nil, cfg.Market)
		a.tracker = usecase.NewTracker(quotes, priceStore, baseLogger.With("component", "tracker"))
	}

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.Location())
		a.sched = usecase.NewScheduler(usecase.SchedulerDeps{
			Driver:    driver,
			Pipeline:  a.pipeline,
			Tracker:   a.tracker,
			Logger:    baseLogger.With("component", "scheduler"),
			Queries:   cfg.Pipeline.Queries,
			Quota:     cfg.Pipeline.Quota,
			NewsCron:  cfg.Scheduler.NewsCron,
			PriceCron: cfg.Scheduler.PriceCron,
		})
	}

	return a, nil
}

// validateConfig rejects configurations the pipeline cannot run with before
// any adapter is constructed.
func validateConfig(cfg config.Config) error {
	if len(cfg.Pipeline.Queries) == 0 {
		return fmt.Errorf("pipeline misconfigured: no search queries")
	}
	if cfg.Pipeline.Quota <= 0 {
		return fmt.Errorf("pipeline misconfigured: quota must be positive")
	}

	for _, src := range cfg.Search.Sources {
		if src.Provider == "brave" && cfg.Search.Brave.APIKey == "" {
			return fmt.Errorf("search misconfigured: source %s needs a brave api key", src.Name)
		}
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("llm misconfigured: missing openai api key")
		}
	default:
		if cfg.LLM.Gemini.APIKey == "" {
			return fmt.Errorf("llm misconfigured: missing gemini api key")
		}
	}

	return nil
}

func (a *Application) buildSummarizer(ctx context.Context, baseLogger *slog.Logger) (ports.Summarizer, error) {
	switch strings.ToLower(a.cfg.LLM.Provider) {
	case "openai":
		return llm.NewOpenAISummarizer(nil, a.cfg.LLM.OpenAI), nil
	default:
		gem, err := llm.NewGeminiSummarizer(ctx, a.cfg.LLM.Gemini, baseLogger.With("component", "llm.gemini"))
		if err != nil {
			return nil, fmt.Errorf("init summarizer: %w", err)
		}
		a.closers = append(a.closers, gem.Close)
		return gem, nil
	}
}

// Run executes a single ingestion pass, or blocks on the scheduler until ctx
// is cancelled when scheduling is enabled.
func (a *Application) Run(ctx context.Context) error {
	if a.sched == nil {
		return a.RunOnce(ctx)
	}

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"news_cron", a.cfg.Scheduler.NewsCron,
		"price_cron", a.cfg.Scheduler.PriceCron,
		"timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.sched.Stop(stopCtx)
}

// RunOnce performs one ingestion run plus one price sample when the tracker
// is configured.
func (a *Application) RunOnce(ctx context.Context) error {
	records, err := a.pipeline.Run(ctx, a.cfg.Pipeline.Queries, a.cfg.Pipeline.Quota)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}
	a.logger.Info("run complete", "accepted", len(records))

	if a.tracker != nil {
		if _, err := a.tracker.Track(ctx); err != nil {
			a.logger.Warn("price tracking failed", "error", err)
		}
	}

	return nil
}

// Close releases every held connection in wiring order.
func (a *Application) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
