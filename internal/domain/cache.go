package domain

import "context"

// ResultCache stores computed sentiment results keyed by normalized-text
// digest. Implementations must never return an expired entry and must treat
// values as immutable once stored.
//
// A failing backend (e.g. Redis) reports the failure through the error return;
// the orchestrator degrades it to a cache miss, so the cache is an
// optimization, never a correctness dependency.
type ResultCache interface {
	// Get returns the cached result and true on a fresh hit.
	Get(ctx context.Context, key CacheKey) (*Result, bool, error)
	// Put inserts or overwrites the entry for key.
	Put(ctx context.Context, key CacheKey, value *Result) error
}
