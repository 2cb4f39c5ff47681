package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://localhost:5432/hunters
steam:
  api_key: abc123
  rate_limit_calls: 50
  rate_limit_window: 1m
updater:
  workers: 4
http:
  addr: ":9000"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/hunters", cfg.Postgres.DSN)
	assert.Equal(t, "abc123", cfg.Steam.APIKey)
	assert.Equal(t, 50, cfg.Steam.RateLimitCalls)
	assert.Equal(t, time.Minute, cfg.Steam.RateLimitWindow)
	assert.Equal(t, 4, cfg.Updater.Workers)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://localhost:5432/hunters
steam:
  api_key: abc123
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Steam.RateLimitCalls)
	assert.Equal(t, 5*time.Minute, cfg.Steam.RateLimitWindow)
	assert.Equal(t, 3, cfg.Steam.MaxAttempts)
	assert.Equal(t, 2, cfg.Updater.Workers)
	assert.Equal(t, 10, cfg.Updater.GameConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.Updater.RefreshInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, ":9090", cfg.Observability.MetricsAddress)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://localhost:5432/hunters
steam:
  api_key: from-file
`)

	t.Setenv("STEAM_API_KEY", "from-env")
	t.Setenv("UPDATER_WORKERS", "8")
	t.Setenv("STEAM_RATE_LIMIT_CALLS", "75")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Steam.APIKey)
	assert.Equal(t, 8, cfg.Updater.Workers)
	assert.Equal(t, 75, cfg.Steam.RateLimitCalls)
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env:5432/hunters")
	t.Setenv("STEAM_API_KEY", "env-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env:5432/hunters", cfg.Postgres.DSN)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("missing dsn", func(t *testing.T) {
		path := writeConfig(t, `
steam:
  api_key: abc123
`)
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "postgres.dsn")
	})

	t.Run("missing api key", func(t *testing.T) {
		path := writeConfig(t, `
postgres:
  dsn: postgres://localhost:5432/hunters
`)
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "steam.api_key")
	})
}
