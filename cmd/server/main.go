package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/adapter/httpserver"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/adapter/model"
	redisadapter "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/adapter/redis"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/analysis"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/cache"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/config"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/logging"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/normalize"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/ratelimit"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *httpserver.Server, cleanups ...func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		for _, cleanup := range cleanups {
			cleanup()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	var (
		resultCache  domain.ResultCache
		healthChecks []httpserver.HealthCheck
		cleanups     []func()
	)

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		redisClient := setupRedis(cfg)
		cleanups = append(cleanups, func() { _ = redisClient.Close() })

		redisCache := redisadapter.NewResultCache(redisClient, cfg.CacheTTL)
		resultCache = redisCache
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "cache",
			Check: redisCache.Ping,
		})
	default:
		store := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL, clock)
		stopEviction := store.StartEvictionTimer(cfg.CacheSweepInterval)
		cleanups = append(cleanups, stopEviction)
		resultCache = store
	}

	normalizer := normalize.New(cfg.MaxTextLength, cfg.LowercaseText)
	limiter := ratelimit.New(cfg.RateLimitQuota, cfg.RateLimitWindow, cfg.RateLimitMaxClients, clock)
	modelClient := model.NewClient(cfg.ModelEndpoint, cfg.ModelName, cfg.InferenceTimeout)

	svc := analysis.NewService(normalizer, limiter, resultCache, modelClient)

	srv := httpserver.NewServer(cfg, svc, healthChecks)

	done := runGracefulShutdown(srv, cleanups...)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
