package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Steam         SteamConfig         `yaml:"steam"`
	Updater       UpdaterConfig       `yaml:"updater"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// SteamConfig holds Steam Web API configuration.
type SteamConfig struct {
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the Steam Web API host; leave empty for production.
	BaseURL string `yaml:"base_url"`
	// RateLimitCalls is the outbound call budget per RateLimitWindow.
	RateLimitCalls  int           `yaml:"rate_limit_calls"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

// UpdaterConfig holds update-pipeline configuration.
type UpdaterConfig struct {
	// Workers is the number of concurrent hunter updates. The Steam rate
	// limiter remains the true throughput governor.
	Workers int `yaml:"workers"`
	// GameConcurrency bounds parallel per-game fetches within one run.
	GameConcurrency int `yaml:"game_concurrency"`
	// RefreshInterval drives the periodic auto-refresh job.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// StaleAfter marks hunters eligible for auto-refresh.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// HTTPConfig holds command-surface server configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// RateLimitPerSecond and RateLimitBurst configure the per-IP middleware.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	LogLevel       string `yaml:"log_level"`
	Environment    string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file. Missing files are not
// fatal; env vars can supply the full configuration.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("STEAM_API_KEY"); v != "" {
		cfg.Steam.APIKey = v
	}
	if v := os.Getenv("STEAM_BASE_URL"); v != "" {
		cfg.Steam.BaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("UPDATER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Updater.Workers = n
		}
	}
	if v := os.Getenv("STEAM_RATE_LIMIT_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Steam.RateLimitCalls = n
		}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Steam.RateLimitCalls == 0 {
		c.Steam.RateLimitCalls = 200
	}
	if c.Steam.RateLimitWindow == 0 {
		c.Steam.RateLimitWindow = 5 * time.Minute
	}
	if c.Steam.CallTimeout == 0 {
		c.Steam.CallTimeout = 30 * time.Second
	}
	if c.Steam.MaxAttempts == 0 {
		c.Steam.MaxAttempts = 3
	}
	if c.Steam.RetryBackoff == 0 {
		c.Steam.RetryBackoff = 2 * time.Second
	}
	if c.Updater.Workers == 0 {
		c.Updater.Workers = 2
	}
	if c.Updater.GameConcurrency == 0 {
		c.Updater.GameConcurrency = 10
	}
	if c.Updater.RefreshInterval == 0 {
		c.Updater.RefreshInterval = 24 * time.Hour
	}
	if c.Updater.StaleAfter == 0 {
		c.Updater.StaleAfter = 24 * time.Hour
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimitPerSecond == 0 {
		c.HTTP.RateLimitPerSecond = 5
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 10
	}
	if c.Observability.MetricsAddress == "" {
		c.Observability.MetricsAddress = ":9090"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
}

func (c *Config) validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("missing required config: postgres.dsn (or DATABASE_URL)")
	}
	if c.Steam.APIKey == "" {
		return fmt.Errorf("missing required config: steam.api_key (or STEAM_API_KEY)")
	}
	return nil
}
