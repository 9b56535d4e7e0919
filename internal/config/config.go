// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap/zapcore"
)

// Config holds runtime settings. Values come from the environment first, then an optional
// JSON file, then Defaults.
type Config struct {
	// Service
	Port     string `env:"PORT" json:"port,omitempty"`
	LogLevel string `env:"LOG_LEVEL" json:"log_level,omitempty"`
	LogDev   bool   `env:"LOG_DEVELOPMENT" json:"log_development,omitempty"` // Human-readable console logs

	// Storage
	DatabaseURL   string `env:"DATABASE_URL" json:"database_url,omitempty"`
	RedisAddr     string `env:"REDIS_ADDR" json:"redis_addr,omitempty"` // Empty disables the shared budget counter
	RedisPassword string `env:"REDIS_PASSWORD" json:"redis_password,omitempty"`
	RedisDB       int    `env:"REDIS_DB" json:"redis_db,omitempty"`

	// Inference
	APIKey                    string `env:"GEMINI_API_KEY" json:"api_key,omitempty"`
	DailyCharBudget           int64  `env:"DAILY_CHAR_BUDGET" json:"daily_char_budget,omitempty"` // Per user; 0 disables enforcement
	CorrelationTimeoutSeconds int    `env:"CORRELATION_TIMEOUT_SECONDS" json:"correlation_timeout_seconds,omitempty"`
	ReportTimeoutSeconds      int    `env:"REPORT_TIMEOUT_SECONDS" json:"report_timeout_seconds,omitempty"` // Per inference call

	Verbose bool `env:"VERBOSE" json:"verbose,omitempty"` // Print detailed CLI output
}

// Defaults returns the built-in settings
func Defaults() Config {
	return Config{
		Port:                      "8080",
		LogLevel:                  "info",
		DailyCharBudget:           500_000,
		CorrelationTimeoutSeconds: 60,
		ReportTimeoutSeconds:      120,
	}
}

// FromEnv reads settings from environment variables. Unset variables stay zero.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Load resolves the full configuration: environment, then the JSON file at path (if any),
// then Defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	merged := *cfg
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged = merged.MergeWithDefaults(*fileCfg)
		merged.LogDev = merged.LogDev || fileCfg.LogDev
		merged.Verbose = merged.Verbose || fileCfg.Verbose
	}
	merged = merged.MergeWithDefaults(Defaults())

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required connection settings are checked by the commands that need them.
func (c *Config) Validate() error {
	if c.Port != "" {
		port, err := strconv.Atoi(c.Port)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("config error: 'port' must be a number between 1 and 65535, got %q", c.Port)
		}
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: 'log_level': %w", err)
		}
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("config error: 'redis_db' must be non-negative")
	}
	if c.DailyCharBudget < 0 {
		return fmt.Errorf("config error: 'daily_char_budget' must be non-negative")
	}
	if c.CorrelationTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'correlation_timeout_seconds' must be non-negative")
	}
	if c.ReportTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'report_timeout_seconds' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Port == "" {
		result.Port = defaults.Port
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisPassword == "" {
		result.RedisPassword = defaults.RedisPassword
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}

	// Numeric fields: use default if zero
	if result.RedisDB == 0 {
		result.RedisDB = defaults.RedisDB
	}
	if result.DailyCharBudget == 0 {
		result.DailyCharBudget = defaults.DailyCharBudget
	}
	if result.CorrelationTimeoutSeconds == 0 {
		result.CorrelationTimeoutSeconds = defaults.CorrelationTimeoutSeconds
	}
	if result.ReportTimeoutSeconds == 0 {
		result.ReportTimeoutSeconds = defaults.ReportTimeoutSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// CorrelationTimeout is the deadline for one correlation inference call
func (c *Config) CorrelationTimeout() time.Duration {
	return time.Duration(c.CorrelationTimeoutSeconds) * time.Second
}

// ReportTimeout is the deadline for each report inference call
func (c *Config) ReportTimeout() time.Duration {
	return time.Duration(c.ReportTimeoutSeconds) * time.Second
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}
