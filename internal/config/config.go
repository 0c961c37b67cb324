package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is overridden at build time via ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Search    SearchConfig     `mapstructure:"search"`
	Metadata  MetadataConfig   `mapstructure:"metadata"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Aliases   AliasesConfig    `mapstructure:"aliases"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SearchRateLimit caps search requests per client IP per minute.
	// 0 disables the limit.
	SearchRateLimit int `mapstructure:"search_rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	// RecentEntries is how many log entries /api/v1/logs keeps in memory.
	RecentEntries int `mapstructure:"recent_entries"`
}

// CacheConfig sizes the shared TTL cache.
type CacheConfig struct {
	MaxSize       int           `mapstructure:"max_size"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SearchConfig tunes the search coordinator.
type SearchConfig struct {
	FuzzyThreshold   float64       `mapstructure:"fuzzy_threshold"`
	DetailBatchSize  int           `mapstructure:"detail_batch_size"`
	TermConcurrency  int           `mapstructure:"term_concurrency"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
	MaxAnimeVariants int           `mapstructure:"max_anime_variants"`
	OriginCountries  []string      `mapstructure:"origin_countries"`
	RegionPriority   []string      `mapstructure:"region_priority"`
}

// MetadataConfig holds the external metadata collaborators.
type MetadataConfig struct {
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Jikan   JikanConfig   `mapstructure:"jikan"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Retry   RetryConfig   `mapstructure:"retry"`
	TTL     TTLConfig     `mapstructure:"ttl"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// JikanConfig holds Jikan (MyAnimeList) API configuration.
type JikanConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base_url"`
	Timeout           int     `mapstructure:"timeout"` // seconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// BreakerConfig configures the circuit breaker around metadata calls.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// RetryConfig configures backoff for metadata HTTP calls.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// TTLConfig holds per data class cache lifetimes for metadata lookups.
type TTLConfig struct {
	Absolute time.Duration `mapstructure:"absolute"`
	Titles   time.Duration `mapstructure:"titles"`
	Anime    time.Duration `mapstructure:"anime"`
	Negative time.Duration `mapstructure:"negative"`
}

// ProviderConfig declares one storage provider backed by a catalog snapshot.
type ProviderConfig struct {
	Kind              string  `mapstructure:"kind"`
	Snapshot          string  `mapstructure:"snapshot"`
	StreamBaseURL     string  `mapstructure:"stream_base_url"`
	DisableBulk       bool    `mapstructure:"disable_bulk"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// AliasesConfig points at the manual alias file.
type AliasesConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// Load reads configuration from a .env file, the config file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cloudseek")
	}

	v.SetEnvPrefix("CLOUDSEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Metadata.TMDB.APIKey == "" {
		cfg.Metadata.TMDB.APIKey = EmbeddedTMDBKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7000)
	v.SetDefault("server.search_rate_limit", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.recent_entries", 500)

	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.default_ttl", time.Hour)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)

	v.SetDefault("search.fuzzy_threshold", 0.3)
	v.SetDefault("search.detail_batch_size", 15)
	v.SetDefault("search.term_concurrency", 20)
	v.SetDefault("search.query_timeout", 30*time.Second)
	v.SetDefault("search.max_anime_variants", 5)
	v.SetDefault("search.origin_countries", []string{"JP", "KR", "CN"})
	v.SetDefault("search.region_priority", []string{"US", "GB", "CA", "AU"})

	v.SetDefault("metadata.tmdb.api_key", "")
	v.SetDefault("metadata.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.tmdb.timeout", 10)

	v.SetDefault("metadata.jikan.enabled", true)
	v.SetDefault("metadata.jikan.base_url", "https://api.jikan.moe/v4")
	v.SetDefault("metadata.jikan.timeout", 10)
	v.SetDefault("metadata.jikan.requests_per_second", 1.0)
	v.SetDefault("metadata.jikan.burst", 3)

	v.SetDefault("metadata.breaker.max_requests", 1)
	v.SetDefault("metadata.breaker.interval", time.Minute)
	v.SetDefault("metadata.breaker.timeout", 30*time.Second)
	v.SetDefault("metadata.breaker.failure_threshold", 5)

	v.SetDefault("metadata.retry.max_attempts", 3)
	v.SetDefault("metadata.retry.initial_delay", 500*time.Millisecond)
	v.SetDefault("metadata.retry.max_delay", 5*time.Second)
	v.SetDefault("metadata.retry.multiplier", 2.0)

	v.SetDefault("metadata.ttl.absolute", 24*time.Hour)
	v.SetDefault("metadata.ttl.titles", 12*time.Hour)
	v.SetDefault("metadata.ttl.anime", 6*time.Hour)
	v.SetDefault("metadata.ttl.negative", time.Hour)

	v.SetDefault("aliases.path", "")
	v.SetDefault("aliases.watch", true)
}

// Validate rejects settings the search pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Search.FuzzyThreshold < 0 || c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be within [0, 1], got %v", c.Search.FuzzyThreshold)
	}
	if c.Search.DetailBatchSize <= 0 {
		return fmt.Errorf("search.detail_batch_size must be positive, got %d", c.Search.DetailBatchSize)
	}
	if c.Search.TermConcurrency <= 0 {
		return fmt.Errorf("search.term_concurrency must be positive, got %d", c.Search.TermConcurrency)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	for i, p := range c.Providers {
		if p.Kind == "" {
			return fmt.Errorf("providers[%d].kind is required", i)
		}
		if p.Snapshot == "" {
			return fmt.Errorf("providers[%d].snapshot is required", i)
		}
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
