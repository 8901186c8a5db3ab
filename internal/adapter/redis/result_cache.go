// Package redis provides the Redis-backed result cache, used when cached
// results must be shared across instances. TTL eviction is delegated to
// Redis itself; memory bounds are operator-configured (maxmemory + LRU
// policy) rather than entry-counted.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
)

const keyPrefix = "sentiment:result:"

// ResultCache stores JSON-encoded sentiment results in Redis with a TTL.
// All backend failures are reported as cache errors; the orchestrator
// degrades them to misses.
type ResultCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewResultCache wraps an existing Redis client.
func NewResultCache(rdb *goredis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached result and true on a hit. Redis handles expiry, so
// a present key is always fresh.
func (c *ResultCache) Get(ctx context.Context, key domain.CacheKey) (*domain.Result, bool, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+key.String()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.CacheError("redis get failed", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, apperrors.CacheError("failed to decode cached result", err)
	}

	return &result, true, nil
}

// Put stores the result under the key with the configured TTL.
func (c *ResultCache) Put(ctx context.Context, key domain.CacheKey, value *domain.Result) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.CacheError("failed to encode result", err)
	}

	if err := c.rdb.Set(ctx, keyPrefix+key.String(), data, c.ttl).Err(); err != nil {
		return apperrors.CacheError("redis set failed", err)
	}
	return nil
}

// Ping verifies connectivity, used as a readiness health check.
func (c *ResultCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
