// Package common provides shared utilities for finsight
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for finsight
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Provider    ProviderConfig `toml:"provider"`
	Cache       CacheConfig    `toml:"cache"`
	Fields      FieldsConfig   `toml:"fields"`
	Query       QueryConfig    `toml:"query"`
	Logging     LoggingConfig  `toml:"logging"`
	Auth        AuthConfig     `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ProviderConfig holds the financial data provider (AKTools HTTP API) configuration.
// Endpoints maps a market code (CN, HK, US) to the provider function that
// serves that market's financial statements; Indicators maps a market code
// to the report granularity that function expects.
type ProviderConfig struct {
	BaseURL    string            `toml:"base_url"`
	RateLimit  int               `toml:"rate_limit"`
	Timeout    string            `toml:"timeout"`
	Endpoints  map[string]string `toml:"endpoints"`
	Indicators map[string]string `toml:"indicators"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig holds the record cache configuration.
type CacheConfig struct {
	Backend       string `toml:"backend"` // "badger" or "file"
	Path          string `toml:"path"`
	TTL           string `toml:"ttl"`
	RefreshWindow string `toml:"refresh_window"`
}

// GetTTL parses and returns the entry time-to-live
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetRefreshWindow parses and returns how old an entry may be before a
// request for a later report date forces a refetch.
func (c *CacheConfig) GetRefreshWindow() time.Duration {
	d, err := time.ParseDuration(c.RefreshWindow)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// FieldsConfig holds field configuration sources and resolver defaults.
type FieldsConfig struct {
	IncludeDefaults bool     `toml:"include_defaults"` // load the embedded core + extended sources first
	Sources         []string `toml:"sources"`          // YAML files loaded after the defaults, in order
	DefaultMarket   string   `toml:"default_market"`   // market used when a symbol cannot be classified
	AllowFuzzy      bool     `toml:"allow_fuzzy"`
}

// QueryConfig holds query facade configuration.
type QueryConfig struct {
	Timeout     string `toml:"timeout"`
	Concurrency int    `toml:"concurrency"` // batch query fan-out
}

// GetTimeout parses and returns the per-query fetch timeout
func (c *QueryConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// AuthConfig holds bearer-token configuration for the REST API.
// An empty JWTSecret disables authentication.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"`
	Issuer      string `toml:"issuer"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Enabled reports whether bearer authentication is required.
func (c *AuthConfig) Enabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
	MaxAgeDays int      `toml:"max_age_days"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Provider: ProviderConfig{
			BaseURL:   "http://127.0.0.1:8080/api/public",
			RateLimit: 5,
			Timeout:   "30s",
			Endpoints: map[string]string{
				"CN": "stock_financial_abstract_ths",
				"HK": "stock_financial_hk_analysis_indicator_em",
				"US": "stock_financial_us_analysis_indicator_em",
			},
		},
		Cache: CacheConfig{
			Backend:       "badger",
			Path:          "data/cache",
			TTL:           "24h",
			RefreshWindow: "6h",
		},
		Fields: FieldsConfig{
			IncludeDefaults: true,
			AllowFuzzy:      true,
		},
		Query: QueryConfig{
			Timeout:     "45s",
			Concurrency: 4,
		},
		Auth: AuthConfig{
			TokenExpiry: "24h",
			Issuer:      "finsight",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "./logs/finsight.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINSIGHT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FINSIGHT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FINSIGHT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FINSIGHT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FINSIGHT_DATA_PATH"); path != "" {
		config.Cache.Path = filepath.Join(path, "cache")
	}

	if url := os.Getenv("FINSIGHT_PROVIDER_URL"); url != "" {
		config.Provider.BaseURL = url
	}

	if sources := os.Getenv("FINSIGHT_FIELD_SOURCES"); sources != "" {
		var list []string
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		config.Fields.Sources = list
	}

	if dm := os.Getenv("FINSIGHT_DEFAULT_MARKET"); dm != "" {
		config.Fields.DefaultMarket = strings.ToUpper(dm)
	}

	if v := os.Getenv("FINSIGHT_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// validate rejects settings that would otherwise fail later in confusing ways.
func validate(config *Config) error {
	switch config.Cache.Backend {
	case "badger", "file":
	case "":
		config.Cache.Backend = "badger"
	default:
		return fmt.Errorf("unknown cache backend '%s' (expected badger or file)", config.Cache.Backend)
	}
	if config.Query.Concurrency <= 0 {
		config.Query.Concurrency = 1
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveConfigPath picks the config file: explicit path, FINSIGHT_CONFIG,
// finsight.toml next to the binary, then config/finsight.toml.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("FINSIGHT_CONFIG"); env != "" {
		return env
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "finsight.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "config/finsight.toml"
}
