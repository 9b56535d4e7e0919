package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // route pattern; "*" matches one path segment
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	AllowlistRaw    string        `env:"RATE_LIMIT_ALLOWLIST"`
	BlocklistRaw    string        `env:"RATE_LIMIT_BLOCKLIST"`

	// derived by LoadConfig
	Allowlist       map[string]bool
	Blocklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig is the configuration used when nothing is set in the environment
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Allowlist:       map[string]bool{},
		Blocklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rate limit environment: %w", err)
	}
	if cfg.Enabled && (cfg.DefaultLimit < 0 || cfg.DefaultWindow <= 0) {
		return nil, fmt.Errorf("rate limit default must be a non-negative limit over a positive window")
	}
	cfg.Allowlist = parseIPList(cfg.AllowlistRaw)
	cfg.Blocklist = parseIPList(cfg.BlocklistRaw)
	cfg.EndpointConfigs = DefaultEndpointConfigs()
	return cfg, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// inference calls
		{Path: "/users/*/reports", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/users/*/reports/stream", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/users/*/correlations", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// writes
		{Path: "/users/*/profile", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/users/*/profile/evolve", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/users/*/quizzes", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/users/*/sources", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/users/*/decisions", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/users/*/sessions/*/observations", Method: "POST", Limit: 600, Window: time.Minute, Burst: 60},

		// reads fall back to the default limit; health is unlimited
		{Path: "/health", Method: "GET", Limit: 0},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
