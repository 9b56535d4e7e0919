package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_DEVELOPMENT", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"GEMINI_API_KEY", "DAILY_CHAR_BUDGET", "CORRELATION_TIMEOUT_SECONDS", "REPORT_TIMEOUT_SECONDS", "VERBOSE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	tmpFile := writeConfig(t, `{
		"port": "9090",
		"database_url": "postgres://localhost/tc",
		"daily_char_budget": 1000,
		"report_timeout_seconds": 30,
		"verbose": true
	}`)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/tc", cfg.DatabaseURL)
	assert.Equal(t, int64(1000), cfg.DailyCharBudget)
	assert.Equal(t, 30, cfg.ReportTimeoutSeconds)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("DAILY_CHAR_BUDGET", "1234")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, int64(1234), cfg.DailyCharBudget)
	assert.True(t, cfg.LogDev)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestFromEnv_BadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_DB", "two")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	path := writeConfig(t, `{"port": "9090", "database_url": "postgres://file/tc", "verbose": true}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "environment wins over file")
	assert.Equal(t, "postgres://file/tc", cfg.DatabaseURL, "file fills what the environment leaves empty")
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "info", cfg.LogLevel, "defaults fill the rest")
	assert.Equal(t, 60*time.Second, cfg.CorrelationTimeout())
	assert.Equal(t, 120*time.Second, cfg.ReportTimeout())
	assert.Equal(t, ":7070", cfg.Addr())
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "empty", cfg: Config{}},
		{name: "non-numeric port", cfg: Config{Port: "http"}, wantErr: "port"},
		{name: "port out of range", cfg: Config{Port: "70000"}, wantErr: "port"},
		{name: "unknown log level", cfg: Config{LogLevel: "loud"}, wantErr: "log_level"},
		{name: "negative redis db", cfg: Config{RedisDB: -1}, wantErr: "redis_db"},
		{name: "negative budget", cfg: Config{DailyCharBudget: -5}, wantErr: "daily_char_budget"},
		{name: "negative correlation timeout", cfg: Config{CorrelationTimeoutSeconds: -1}, wantErr: "correlation_timeout_seconds"},
		{name: "negative report timeout", cfg: Config{ReportTimeoutSeconds: -1}, wantErr: "report_timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		Port:            "8080",
		LogLevel:        "info",
		RedisAddr:       "localhost:6379",
		DailyCharBudget: 500,
	}

	partial := Config{
		Port:        "9000",
		DatabaseURL: "postgres://custom",
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "9000", merged.Port)
	assert.Equal(t, "postgres://custom", merged.DatabaseURL)

	// Default values should fill in empty fields
	assert.Equal(t, "info", merged.LogLevel)
	assert.Equal(t, "localhost:6379", merged.RedisAddr)
	assert.Equal(t, int64(500), merged.DailyCharBudget)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		Port:   "9000",
		APIKey: "key",
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, cfg, merged)
}
