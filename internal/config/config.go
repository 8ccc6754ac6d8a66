// Package config loads settings from environment variables with an optional
// config.yaml overlay. Environment provides the defaults; values present in
// the YAML file win, so a checked-in config.yaml fully describes a
// deployment while ad-hoc runs can still steer via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// LoggingConfig controls logrus setup.
type LoggingConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// ProviderConfig controls the market data provider.
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url"`
	PacingMs   int    `yaml:"pacing_ms"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CacheConfig controls the Redis chain cache.
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RedisURL    string `yaml:"redis_url"`
	ChainTTLSec int    `yaml:"chain_ttl_sec"`
}

// ScanConfig holds the evaluation defaults. CLI flags and API query
// parameters override these per request.
type ScanConfig struct {
	Side string `yaml:"side"`
	// ReportExpirations bounds the fixed-strike report scan.
	ReportExpirations int `yaml:"report_expirations"`
	// SeekExpirations bounds the best-strike search.
	SeekExpirations int `yaml:"seek_expirations"`
	// HorizonMonths bounds expirations to months*30 days; 0 = unbounded.
	HorizonMonths int `yaml:"horizon_months"`
	// MinAnnualReturnPct is the seeker qualification threshold.
	MinAnnualReturnPct float64 `yaml:"min_annual_return_pct"`
}

type Config struct {
	// Server settings
	Port string `yaml:"port"`

	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Scan     ScanConfig     `yaml:"scan"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Pacing returns the provider pacing delay as a duration.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.Provider.PacingMs) * time.Millisecond
}

// Timeout returns the provider HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSec) * time.Second
}

// ChainTTL returns how long cached chains stay fresh.
func (c *Config) ChainTTL() time.Duration {
	return time.Duration(c.Cache.ChainTTLSec) * time.Second
}

// Load builds the configuration from environment defaults, then overlays
// config.yaml when present.
func Load() *Config {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit YAML path, for tests.
func LoadFile(path string) *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Provider: ProviderConfig{
			BaseURL:    getEnv("PROVIDER_BASE_URL", "https://query2.finance.yahoo.com"),
			PacingMs:   getEnvInt("PROVIDER_PACING_MS", 300),
			TimeoutSec: getEnvInt("PROVIDER_TIMEOUT_SEC", 30),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			ChainTTLSec: getEnvInt("CACHE_CHAIN_TTL_SEC", 300),
		},
		Scan: ScanConfig{
			Side:               getEnv("SCAN_SIDE", "put"),
			ReportExpirations:  getEnvInt("SCAN_REPORT_EXPIRATIONS", 8),
			SeekExpirations:    getEnvInt("SCAN_SEEK_EXPIRATIONS", 10),
			HorizonMonths:      getEnvInt("SCAN_HORIZON_MONTHS", 0),
			MinAnnualReturnPct: getEnvFloat("SCAN_MIN_ANNUAL_RETURN_PCT", 15.0),
		},
		Logging: LoggingConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogFile:  getEnv("LOG_FILE", ""),
		},
	}

	if yc := loadYAML(path); yc != nil {
		applyYAML(cfg, yc)
	}
	return cfg
}

// yamlConfig mirrors Config with everything optional, so only the keys
// actually present in the file override the env defaults.
type yamlConfig struct {
	Port     string `yaml:"port"`
	Provider struct {
		BaseURL    string `yaml:"base_url"`
		PacingMs   *int   `yaml:"pacing_ms"`
		TimeoutSec *int   `yaml:"timeout_sec"`
	} `yaml:"provider"`
	Cache struct {
		Enabled     *bool  `yaml:"enabled"`
		RedisURL    string `yaml:"redis_url"`
		ChainTTLSec *int   `yaml:"chain_ttl_sec"`
	} `yaml:"cache"`
	Scan struct {
		Side               string   `yaml:"side"`
		ReportExpirations  *int     `yaml:"report_expirations"`
		SeekExpirations    *int     `yaml:"seek_expirations"`
		HorizonMonths      *int     `yaml:"horizon_months"`
		MinAnnualReturnPct *float64 `yaml:"min_annual_return_pct"`
	} `yaml:"scan"`
	Logging LoggingConfig `yaml:"logging"`
}

func loadYAML(path string) *yamlConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		// no config file is fine, env defaults apply
		return nil
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil
	}
	return &yc
}

func applyYAML(cfg *Config, yc *yamlConfig) {
	if yc.Port != "" {
		cfg.Port = yc.Port
	}
	if yc.Provider.BaseURL != "" {
		cfg.Provider.BaseURL = yc.Provider.BaseURL
	}
	if yc.Provider.PacingMs != nil {
		cfg.Provider.PacingMs = *yc.Provider.PacingMs
	}
	if yc.Provider.TimeoutSec != nil {
		cfg.Provider.TimeoutSec = *yc.Provider.TimeoutSec
	}
	if yc.Cache.Enabled != nil {
		cfg.Cache.Enabled = *yc.Cache.Enabled
	}
	if yc.Cache.RedisURL != "" {
		cfg.Cache.RedisURL = yc.Cache.RedisURL
	}
	if yc.Cache.ChainTTLSec != nil {
		cfg.Cache.ChainTTLSec = *yc.Cache.ChainTTLSec
	}
	if yc.Scan.Side != "" {
		cfg.Scan.Side = yc.Scan.Side
	}
	if yc.Scan.ReportExpirations != nil {
		cfg.Scan.ReportExpirations = *yc.Scan.ReportExpirations
	}
	if yc.Scan.SeekExpirations != nil {
		cfg.Scan.SeekExpirations = *yc.Scan.SeekExpirations
	}
	if yc.Scan.HorizonMonths != nil {
		cfg.Scan.HorizonMonths = *yc.Scan.HorizonMonths
	}
	if yc.Scan.MinAnnualReturnPct != nil {
		cfg.Scan.MinAnnualReturnPct = *yc.Scan.MinAnnualReturnPct
	}
	if yc.Logging.LogLevel != "" {
		cfg.Logging.LogLevel = yc.Logging.LogLevel
	}
	if yc.Logging.LogFile != "" {
		cfg.Logging.LogFile = yc.Logging.LogFile
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
