// Package common provides shared utilities across the application:
// configuration, logging, ticker parsing and version information.
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML duration strings like "30s" or "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler via time.ParseDuration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard library value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration.
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Provider    ProviderConfig   `toml:"provider"`
	Cache       CacheConfig      `toml:"cache"`
	Screener    ScreenerConfig   `toml:"screener"`
	Similarity  SimilarityConfig `toml:"similarity"`
	Refresh     RefreshConfig    `toml:"refresh"`
	Universe    UniverseConfig   `toml:"universe"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ProviderConfig configures the market-data provider adapter.
type ProviderConfig struct {
	// Kind selects the adapter: "eodhd" or "yahoo".
	Kind    string `toml:"kind"`
	BaseURL string `toml:"base_url"` // eodhd only; empty = provider default
	APIKey  string `toml:"api_key"`
	// RateLimit is the maximum requests per second against the provider.
	RateLimit int `toml:"rate_limit"`
	// DefaultExchange resolves bare ticker codes (e.g. "AAPL") when no
	// exchange prefix is given.
	DefaultExchange string `toml:"default_exchange"`
	// Timeout bounds every provider call. Mandatory: a zero value is
	// replaced by the default at load time.
	Timeout      Duration `toml:"timeout"`
	MaxRetries   int      `toml:"max_retries"`
	RetryBackoff Duration `toml:"retry_backoff"`
}

// CacheConfig carries the per-group TTLs. Groups refresh on different
// cadences; a group older than its TTL is refetched on next access.
type CacheConfig struct {
	FundamentalsTTL Duration `toml:"fundamentals_ttl"`
	OwnershipTTL    Duration `toml:"ownership_ttl"`
	ShareDataTTL    Duration `toml:"sharedata_ttl"`
	ValuationTTL    Duration `toml:"valuation_ttl"`
	TechnicalsTTL   Duration `toml:"technicals_ttl"`
}

type ScreenerConfig struct {
	// Stage1Cap bounds how many candidates survive the broad scan into the
	// expensive detailed-ranking stage.
	Stage1Cap int `toml:"stage1_cap"`
	// DefaultSize is the result size when the caller does not ask for one.
	DefaultSize int `toml:"default_size"`
}

type SimilarityConfig struct {
	DefaultSize int `toml:"default_size"`
}

// RefreshConfig configures the background refresh job.
type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format
}

// UniverseConfig points at the YAML seed file listing the tickers to prime.
type UniverseConfig struct {
	SeedFile string `toml:"seed_file"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the configuration defaults. File, env and flag
// values layer on top.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/funnel",
			},
		},
		Provider: ProviderConfig{
			Kind:         "eodhd",
			RateLimit:    10,
			Timeout:      Duration(30 * time.Second),
			MaxRetries:   3,
			RetryBackoff: Duration(500 * time.Millisecond),
		},
		Cache: CacheConfig{
			FundamentalsTTL: Duration(90 * 24 * time.Hour),
			OwnershipTTL:    Duration(7 * 24 * time.Hour),
			ShareDataTTL:    Duration(30 * 24 * time.Hour),
			ValuationTTL:    Duration(24 * time.Hour),
			TechnicalsTTL:   Duration(24 * time.Hour),
		},
		Screener: ScreenerConfig{
			Stage1Cap:   75,
			DefaultSize: 20,
		},
		Similarity: SimilarityConfig{
			DefaultSize: 10,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "0 6 * * *",
		},
		Universe: UniverseConfig{
			SeedFile: "./universe.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from one or more TOML files. Later
// files override earlier ones; environment variables override files.
// Missing paths are an error, an empty path list yields defaults + env.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	applyGuards(config)

	return config, nil
}

// applyEnvOverrides applies FUNNEL_* environment variables on top of file
// configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("FUNNEL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("FUNNEL_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("FUNNEL_STORAGE_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("FUNNEL_PROVIDER_KIND"); v != "" {
		config.Provider.Kind = v
	}
	if v := os.Getenv("FUNNEL_PROVIDER_API_KEY"); v != "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("FUNNEL_PROVIDER_BASE_URL"); v != "" {
		config.Provider.BaseURL = v
	}
	if v := os.Getenv("FUNNEL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("FUNNEL_ENVIRONMENT"); v != "" {
		config.Environment = v
	}
}

// applyGuards replaces zero values that must not stay zero. Provider
// timeouts are mandatory.
func applyGuards(config *Config) {
	if config.Provider.Timeout <= 0 {
		config.Provider.Timeout = Duration(30 * time.Second)
	}
	if config.Provider.RateLimit <= 0 {
		config.Provider.RateLimit = 10
	}
	if config.Provider.RetryBackoff <= 0 {
		config.Provider.RetryBackoff = Duration(500 * time.Millisecond)
	}
	if config.Screener.Stage1Cap <= 0 {
		config.Screener.Stage1Cap = 75
	}
	if config.Screener.DefaultSize <= 0 {
		config.Screener.DefaultSize = 20
	}
	if config.Similarity.DefaultSize <= 0 {
		config.Similarity.DefaultSize = 10
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// TTL returns the configured TTL for a metric group name. Unknown groups
// get the shortest TTL so they are refetched rather than served stale.
func (c *CacheConfig) TTL(group string) time.Duration {
	switch group {
	case "fundamentals":
		return c.FundamentalsTTL.Duration()
	case "ownership":
		return c.OwnershipTTL.Duration()
	case "sharedata":
		return c.ShareDataTTL.Duration()
	case "valuation":
		return c.ValuationTTL.Duration()
	case "technicals":
		return c.TechnicalsTTL.Duration()
	}
	return c.TechnicalsTTL.Duration()
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
