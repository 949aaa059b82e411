package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is read once at
// startup and passed by pointer to constructors; nothing mutates it after Load.
type Config struct {
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	ABR        ABRConfig        `yaml:"abr" mapstructure:"abr"`
	News       NewsConfig       `yaml:"news" mapstructure:"news"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Fetcher    FetcherConfig    `yaml:"fetcher" mapstructure:"fetcher"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Documents  DocumentsConfig  `yaml:"documents" mapstructure:"documents"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AIConfig toggles the LLM analysis step.
type AIConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LLMConfig selects and tunes the LLM provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider" validate:"oneof=anthropic openai"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=2"`
}

// Timeout returns the per-call LLM timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds settings for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Region  string `yaml:"region" mapstructure:"region"`
}

// ApolloConfig holds contact-enrichment API settings.
type ApolloConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// ABRConfig holds Australian Business Register ABN Lookup settings.
type ABRConfig struct {
	GUID    string `yaml:"guid" mapstructure:"guid"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NewsConfig configures the news feed source.
type NewsConfig struct {
	FeedURL     string `yaml:"feed_url" mapstructure:"feed_url" validate:"required,url"`
	Locale      string `yaml:"locale" mapstructure:"locale"`
	MaxArticles int    `yaml:"max_articles" mapstructure:"max_articles" validate:"gt=0"`
}

// SourcesConfig configures the source orchestrator.
type SourcesConfig struct {
	// Enabled lists adapter names; empty means all.
	Enabled            []string `yaml:"enabled" mapstructure:"enabled"`
	MaxConcurrent      int      `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1"`
	AdapterTimeoutSecs int      `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs" validate:"gt=0"`
	CollectTimeoutSecs int      `yaml:"collect_timeout_secs" mapstructure:"collect_timeout_secs" validate:"gt=0"`
}

// AdapterTimeout returns the per-adapter deadline.
func (c SourcesConfig) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSecs) * time.Second
}

// CollectTimeout returns the budget for a whole collection run.
func (c SourcesConfig) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutSecs) * time.Second
}

// ResilienceConfig configures retries and the website circuit breaker.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"gte=0"`
	CircuitThreshold int `yaml:"circuit_threshold" mapstructure:"circuit_threshold" validate:"gte=1"`
	CircuitResetSecs int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs" validate:"gte=1"`
}

// FetcherConfig configures the generic HTTP fetcher.
type FetcherConfig struct {
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required"`
}

// DocumentsConfig configures where generated documents are written.
type DocumentsConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=fs s3"`
	Dir     string `yaml:"dir" mapstructure:"dir" validate:"required_if=Backend fs"`
	Bucket  string `yaml:"bucket" mapstructure:"bucket" validate:"required_if=Backend s3"`
	Prefix  string `yaml:"prefix" mapstructure:"prefix"`
	Region  string `yaml:"region" mapstructure:"region"`
}

// CacheConfig configures the source-result cache.
type CacheConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend" validate:"oneof=none redis"`
	Addr     string `yaml:"addr" mapstructure:"addr" validate:"required_if=Backend redis"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours" validate:"gt=0"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ServerConfig configures the streamable HTTP transport.
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// LLMKey returns the credential for the selected provider.
func (c *Config) LLMKey() string {
	if c.LLM.Provider == "openai" {
		return c.OpenAI.Key
	}
	return c.Anthropic.Key
}

// Load reads configuration from config.yaml, the environment (PROSPECT_
// prefix, dots become underscores) and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.enabled", true)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-sonnet-4-5")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.max_attempts", 2)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.region", "AU")
	v.SetDefault("apollo.base_url", "https://api.apollo.io/api/v1")
	v.SetDefault("apollo.rate_limit", 2)
	v.SetDefault("abr.base_url", "https://abr.business.gov.au/json")
	v.SetDefault("news.feed_url", "https://news.google.com/rss/search")
	v.SetDefault("news.locale", "en-AU")
	v.SetDefault("news.max_articles", 10)
	v.SetDefault("sources.max_concurrent", 9)
	v.SetDefault("sources.adapter_timeout_secs", 45)
	v.SetDefault("sources.collect_timeout_secs", 90)
	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.circuit_threshold", 3)
	v.SetDefault("resilience.circuit_reset_secs", 60)
	v.SetDefault("fetcher.user_agent", "prospect-research/1.0")
	v.SetDefault("fetcher.requests_per_second", 2)
	v.SetDefault("fetcher.timeout_secs", 20)
	v.SetDefault("fetcher.max_body_bytes", 2<<20)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("documents.backend", "fs")
	v.SetDefault("documents.dir", "prospects")
	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Empty defaults register the keys so AutomaticEnv reaches them in Unmarshal.
	for _, key := range []string{
		"anthropic.key", "anthropic.base_url", "openai.key", "openai.base_url",
		"jina.key", "firecrawl.key", "perplexity.key", "google.key",
		"apollo.key", "abr.guid",
		"documents.bucket", "documents.prefix", "documents.region",
		"cache.addr", "cache.password",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("sources.enabled", []string{})
	v.SetDefault("cache.db", 0)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct-tag constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return eris.Wrap(err, "config: validate log level")
	}
	return nil
}

// InitLogger initializes the global zap logger. Output goes to stderr so the
// stdio MCP transport keeps stdout for protocol frames.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
