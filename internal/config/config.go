// Package config loads and validates process configuration from the
// environment, with optional .env support for local development.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	// CacheBackendMemory selects the in-process LRU/TTL result cache.
	CacheBackendMemory = "memory"
	// CacheBackendRedis selects the Redis-backed result cache.
	CacheBackendRedis = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Model adapter
	ModelEndpoint    string        `env:"MODEL_ENDPOINT"`
	ModelName        string        `env:"MODEL_NAME" default:"SamLowe/roberta-base-go_emotions"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" default:"10s"`

	// Text normalization
	MaxTextLength int  `env:"MAX_TEXT_LENGTH" default:"1000"`
	LowercaseText bool `env:"LOWERCASE_TEXT" default:"false"`

	// Result cache
	CacheBackend       string        `env:"CACHE_BACKEND" default:"memory"`
	CacheTTL           time.Duration `env:"CACHE_TTL" default:"1h"`
	CacheMaxEntries    int           `env:"CACHE_MAX_ENTRIES" default:"10000"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" default:"5m"`
	RedisURL           string        `env:"REDIS_URL"`

	// Per-client rate limiting
	RateLimitQuota      int           `env:"RATE_LIMIT_QUOTA" default:"60"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitMaxClients int           `env:"RATE_LIMIT_MAX_CLIENTS" default:"10000"`

	// Transport-level per-IP limiter (in front of the core pipeline)
	TransportRatePerSecond float64 `env:"TRANSPORT_RATE_PER_SECOND" default:"20"`
	TransportBurst         int     `env:"TRANSPORT_BURST" default:"40"`

	// Service-to-service auth. Empty list disables auth (development only).
	APIKeys []string `env:"API_KEYS"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ModelEndpoint == "" {
		return fmt.Errorf("MODEL_ENDPOINT is required")
	}
	if cfg.MaxTextLength < 1 {
		return fmt.Errorf("MAX_TEXT_LENGTH must be positive, got %d", cfg.MaxTextLength)
	}
	if cfg.RateLimitQuota < 1 {
		return fmt.Errorf("RATE_LIMIT_QUOTA must be positive, got %d", cfg.RateLimitQuota)
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimitWindow)
	}
	if cfg.RateLimitMaxClients < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_CLIENTS must be positive, got %d", cfg.RateLimitMaxClients)
	}
	if cfg.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", cfg.CacheMaxEntries)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}

	switch cfg.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is %q", CacheBackendRedis)
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, cfg.CacheBackend)
	}

	if cfg.AppEnv == "production" && len(cfg.APIKeys) == 0 {
		return fmt.Errorf("API_KEYS is required in production")
	}

	return nil
}
