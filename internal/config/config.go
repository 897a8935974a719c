package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "FINNEWS_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	braveAPIKeyEnv   = "BRAVE_API_KEY"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Search        SearchConfig       `yaml:"search"`
	Fetcher       FetcherConfig      `yaml:"fetcher"`
	LLM           LLMConfig          `yaml:"llm"`
	Market        MarketConfig       `yaml:"market"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects handler level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig describes the optional accepted-record queue. An empty Addr
// disables the queue entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	QueueKey string `yaml:"queueKey"`
}

// SchedulerConfig defines when the ingestion jobs run. With Enabled false the
// process performs a single run and exits.
type SchedulerConfig struct {
	Enabled   bool           `yaml:"enabled"`
	NewsCron  string         `yaml:"newsCron"`
	PriceCron string         `yaml:"priceCron"`
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig carries the ingestion-run tunables. Delay fields accept
// time.ParseDuration strings ("3s", "500ms").
type PipelineConfig struct {
	Queries          []string `yaml:"queries"`
	Quota            int      `yaml:"quota"`
	MinContentLength int      `yaml:"minContentLength"`
	MinSummaryLength int      `yaml:"minSummaryLength"`
	ExcerptLength    int      `yaml:"excerptLength"`
	PacingDelay      string   `yaml:"pacingDelay"`
	BackoffDelay     string   `yaml:"backoffDelay"`

	pacing  time.Duration `yaml:"-"`
	backoff time.Duration `yaml:"-"`
}

// PacingDuration returns the parsed pacing delay applied after an acceptance.
func (p PipelineConfig) PacingDuration() time.Duration {
	if p.pacing > 0 {
		return p.pacing
	}
	return 3 * time.Second
}

// BackoffDuration returns the parsed delay applied after a summarizer failure.
func (p PipelineConfig) BackoffDuration() time.Duration {
	if p.backoff > 0 {
		return p.backoff
	}
	return 5 * time.Second
}

// SearchConfig wires provider credentials with the ordered source list.
type SearchConfig struct {
	Sources []SourceConfig `yaml:"sources"`
	Brave   BraveConfig    `yaml:"brave"`
}

// SourceConfig describes a single search source with its provider strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Provider string            `yaml:"provider"`
	Feeds    []FeedConfig      `yaml:"feeds"`
	Options  map[string]string `yaml:"options"`
}

// FeedConfig holds one RSS/Atom endpoint for feed-backed sources.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// BraveConfig defines how to contact the Brave Search API.
type BraveConfig struct {
	APIKey       string   `yaml:"apiKey"`
	Endpoint     string   `yaml:"endpoint"`
	Count        int      `yaml:"count"`
	Freshness    string   `yaml:"freshness"`
	Lang         string   `yaml:"lang"`
	SiteFilters  []string `yaml:"siteFilters"`
	RequestDelay string   `yaml:"requestDelay"`

	requestDelay time.Duration `yaml:"-"`
}

// RequestDelayDuration returns the pause applied after each Brave call.
func (b BraveConfig) RequestDelayDuration() time.Duration {
	if b.requestDelay > 0 {
		return b.requestDelay
	}
	return 2 * time.Second
}

// FetcherConfig tunes the article page fetcher.
type FetcherConfig struct {
	Timeout       string `yaml:"timeout"`
	UserAgent     string `yaml:"userAgent"`
	MinTextLength int    `yaml:"minTextLength"`

	timeout time.Duration `yaml:"-"`
}

// TimeoutDuration returns the per-page HTTP timeout.
func (f FetcherConfig) TimeoutDuration() time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return 10 * time.Second
}

// LLMConfig selects and configures the summarizer backend.
type LLMConfig struct {
	Provider string       `yaml:"provider"`
	Gemini   GeminiConfig `yaml:"gemini"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible chat API.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// MarketConfig describes the spot-price tracker running alongside the news
// pipeline. Enabled stays a pointer: a nil value means the key is absent
// from the file, which is distinct from an explicit `enabled: false`.
type MarketConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	APIURL   string `yaml:"apiUrl"`
	Coin     string `yaml:"coin"`
	Currency string `yaml:"currency"`
}

// IsEnabled reports whether the price tracker should run; an absent key
// keeps it on.
func (m MarketConfig) IsEnabled() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digest messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.bindDurations()

	if len(cfg.Search.Sources) == 0 {
		cfg.Search.Sources = defaultConfig().Search.Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(braveAPIKeyEnv); v != "" {
		c.Search.Brave.APIKey = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.LLM.Gemini.APIKey = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.OpenAI.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func (c *Config) bindDurations() {
	c.Pipeline.pacing = parseDuration("pipeline.pacingDelay", c.Pipeline.PacingDelay, 3*time.Second)
	c.Pipeline.backoff = parseDuration("pipeline.backoffDelay", c.Pipeline.BackoffDelay, 5*time.Second)
	c.Search.Brave.requestDelay = parseDuration("search.brave.requestDelay", c.Search.Brave.RequestDelay, 2*time.Second)
	c.Fetcher.timeout = parseDuration("fetcher.timeout", c.Fetcher.Timeout, 10*time.Second)
}

func parseDuration(field, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("config: invalid duration %q for %s, reverting to %s", value, field, fallback)
		return fallback
	}
	return d
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.QueueKey != "" {
		base.Redis.QueueKey = override.Redis.QueueKey
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.NewsCron != "" {
		base.Scheduler.NewsCron = override.Scheduler.NewsCron
	}
	if override.Scheduler.PriceCron != "" {
		base.Scheduler.PriceCron = override.Scheduler.PriceCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Pipeline.Queries) > 0 {
		base.Pipeline.Queries = override.Pipeline.Queries
	}
	if override.Pipeline.Quota > 0 {
		base.Pipeline.Quota = override.Pipeline.Quota
	}
	if override.Pipeline.MinContentLength > 0 {
		base.Pipeline.MinContentLength = override.Pipeline.MinContentLength
	}
	if override.Pipeline.MinSummaryLength > 0 {
		base.Pipeline.MinSummaryLength = override.Pipeline.MinSummaryLength
	}
	if override.Pipeline.ExcerptLength > 0 {
		base.Pipeline.ExcerptLength = override.Pipeline.ExcerptLength
	}
	if override.Pipeline.PacingDelay != "" {
		base.Pipeline.PacingDelay = override.Pipeline.PacingDelay
	}
	if override.Pipeline.BackoffDelay != "" {
		base.Pipeline.BackoffDelay = override.Pipeline.BackoffDelay
	}

	if len(override.Search.Sources) > 0 {
		base.Search.Sources = override.Search.Sources
	}
	if override.Search.Brave.APIKey != "" {
		base.Search.Brave.APIKey = override.Search.Brave.APIKey
	}
	if override.Search.Brave.Endpoint != "" {
		base.Search.Brave.Endpoint = override.Search.Brave.Endpoint
	}
	if override.Search.Brave.Count > 0 {
		base.Search.Brave.Count = override.Search.Brave.Count
	}
	if override.Search.Brave.Freshness != "" {
		base.Search.Brave.Freshness = override.Search.Brave.Freshness
	}
	if override.Search.Brave.Lang != "" {
		base.Search.Brave.Lang = override.Search.Brave.Lang
	}
	if len(override.Search.Brave.SiteFilters) > 0 {
		base.Search.Brave.SiteFilters = override.Search.Brave.SiteFilters
	}
	if override.Search.Brave.RequestDelay != "" {
		base.Search.Brave.RequestDelay = override.Search.Brave.RequestDelay
	}

	if override.Fetcher.Timeout != "" {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}
	if override.Fetcher.MinTextLength > 0 {
		base.Fetcher.MinTextLength = override.Fetcher.MinTextLength
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Gemini.APIKey != "" {
		base.LLM.Gemini.APIKey = override.LLM.Gemini.APIKey
	}
	if override.LLM.Gemini.Model != "" {
		base.LLM.Gemini.Model = override.LLM.Gemini.Model
	}
	if override.LLM.OpenAI.Endpoint != "" {
		base.LLM.OpenAI.Endpoint = override.LLM.OpenAI.Endpoint
	}
	if override.LLM.OpenAI.Model != "" {
		base.LLM.OpenAI.Model = override.LLM.OpenAI.Model
	}
	if override.LLM.OpenAI.APIKey != "" {
		base.LLM.OpenAI.APIKey = override.LLM.OpenAI.APIKey
	}

	if override.Market.Enabled != nil {
		base.Market.Enabled = override.Market.Enabled
	}
	if override.Market.APIURL != "" {
		base.Market.APIURL = override.Market.APIURL
	}
	if override.Market.Coin != "" {
		base.Market.Coin = override.Market.Coin
	}
	if override.Market.Currency != "" {
		base.Market.Currency = override.Market.Currency
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		// Empty DSN and Redis addr leave those integrations disabled.
		Database: DatabaseConfig{DSN: ""},
		Redis:    RedisConfig{Addr: "", QueueKey: "finnews:queue:accepted"},
		Scheduler: SchedulerConfig{
			Enabled:   false,
			NewsCron:  "0 7 * * *",
			PriceCron: "*/30 * * * *",
			Timezone:  defaultTimezone,
			location:  tz,
		},
		Pipeline: PipelineConfig{
			Queries: []string{
				"stock market news today",
				"financial markets update",
				"market analysis today",
			},
			Quota:            3,
			MinContentLength: 500,
			MinSummaryLength: 50,
			ExcerptLength:    8000,
			PacingDelay:      "3s",
			BackoffDelay:     "5s",
		},
		Search: SearchConfig{
			Sources: []SourceConfig{
				{Name: "brave-news", Provider: "brave"},
			},
			Brave: BraveConfig{
				Endpoint:  "news",
				Count:     10,
				Freshness: "pd",
				Lang:      "en",
				SiteFilters: []string{
					"bloomberg.com",
					"cnbc.com",
					"wsj.com",
					"marketwatch.com",
				},
				RequestDelay: "2s",
			},
		},
		Fetcher: FetcherConfig{
			Timeout:       "10s",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MinTextLength: 100,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Gemini:   GeminiConfig{Model: "gemini-1.5-flash"},
			OpenAI: OpenAIConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
		},
		Market: MarketConfig{
			APIURL:   "https://api.coingecko.com/api/v3/simple/price",
			Coin:     "bitcoin",
			Currency: "usd",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
	}
}
