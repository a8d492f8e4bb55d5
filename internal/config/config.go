// Package config loads service configuration from defaults, an optional
// config file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fortuna/gridiron/internal/reconciliation"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	OddsAPI OddsAPIConfig `mapstructure:"oddsapi"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listeners
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	WSPort      int      `mapstructure:"ws_port"`
	Env         string   `mapstructure:"env"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// OddsAPIConfig holds the aggregator client settings
type OddsAPIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Regions string        `mapstructure:"regions"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the response cache settings
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ScrapeConfig holds the sportsbook scraper settings
type ScrapeConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Fallback    bool          `mapstructure:"fallback"` // scrape when the aggregator is down
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Books       []string      `mapstructure:"books"`

	// ReconcileStrategy is smart_merge or prefer_authoritative
	ReconcileStrategy string `mapstructure:"reconcile_strategy"`
}

// RedisConfig holds the snapshot publisher settings. An empty URL disables it.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// KnownBooks are the sportsbooks a scraper exists for
var KnownBooks = []string{"draftkings", "fanduel", "betmgm", "caesars"}

// envBindings maps config keys onto their plain environment names
var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.ws_port":            "WS_PORT",
	"server.env":                "ENV",
	"server.cors_origins":       "CORS_ORIGINS",
	"oddsapi.api_key":           "ODDS_API_KEY",
	"oddsapi.base_url":          "ODDS_API_BASE_URL",
	"cache.ttl":                 "CACHE_TTL",
	"scrape.enabled":            "SCRAPE_ENABLED",
	"scrape.fallback":           "SCRAPE_FALLBACK",
	"scrape.books":              "SCRAPE_BOOKS",
	"scrape.reconcile_strategy": "SCRAPE_RECONCILE_STRATEGY",
	"redis.url":                 "REDIS_URL",
	"redis.stream":              "REDIS_STREAM",
	"logging.level":             "LOG_LEVEL",
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment apply. A missing .env is not an error, an
// unreadable or malformed one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	v.SetEnvPrefix("GRIDIRON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.ws_port", 5001)
	v.SetDefault("server.env", "local")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("oddsapi.api_key", "")
	v.SetDefault("oddsapi.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("oddsapi.regions", "us")
	v.SetDefault("oddsapi.timeout", "10s")

	v.SetDefault("cache.ttl", "300s")

	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.fallback", false)
	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.min_interval", "2s")
	v.SetDefault("scrape.books", KnownBooks)
	v.SetDefault("scrape.reconcile_strategy", string(reconciliation.SmartMerge))

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.stream", "odds.nfl.snapshots")

	v.SetDefault("logging.level", "info")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.WSPort < 1 || c.Server.WSPort > 65535 {
		return fmt.Errorf("server.ws_port must be between 1 and 65535")
	}
	if c.Server.WSPort == c.Server.Port {
		return fmt.Errorf("server.ws_port must differ from server.port")
	}

	if c.OddsAPI.BaseURL == "" {
		return fmt.Errorf("oddsapi.base_url is required")
	}
	if c.OddsAPI.Timeout <= 0 {
		return fmt.Errorf("oddsapi.timeout must be positive")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("scrape.timeout must be positive")
	}
	if c.Scrape.MinInterval < 0 {
		return fmt.Errorf("scrape.min_interval must not be negative")
	}
	known := make(map[string]bool, len(KnownBooks))
	for _, b := range KnownBooks {
		known[b] = true
	}
	for _, b := range c.Scrape.Books {
		if !known[b] {
			return fmt.Errorf("scrape.books: unknown sportsbook %q", b)
		}
	}
	if _, err := reconciliation.ParseStrategy(c.Scrape.ReconcileStrategy); err != nil {
		return fmt.Errorf("scrape.reconcile_strategy: %w", err)
	}
	if c.Scrape.Fallback && !c.Scrape.Enabled {
		return fmt.Errorf("scrape.fallback requires scrape.enabled")
	}

	if c.Redis.URL != "" && c.Redis.Stream == "" {
		return fmt.Errorf("redis.stream is required when redis.url is set")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// APIConfigured reports whether an aggregator key is present
func (c *Config) APIConfigured() bool {
	return c.OddsAPI.APIKey != ""
}
