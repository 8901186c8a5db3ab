package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// ScoreEntry is a single label/confidence pair produced by the model.
type ScoreEntry struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is an immutable sentiment analysis outcome. Once constructed it is
// never mutated; the cache publishes it by reference swap, so concurrent
// readers always observe a complete value.
type Result struct {
	Text      string       `json:"text"`
	Scores    []ScoreEntry `json:"scores"`
	ModelName string       `json:"model"`
}

// CacheKey is a fixed-size digest of normalized text. Equal normalized texts
// always produce equal keys.
type CacheKey [sha256.Size]byte

// KeyFor derives the cache key for a normalized text.
func KeyFor(normalized string) CacheKey {
	return sha256.Sum256([]byte(normalized))
}

// String returns the hex form of the key, used for Redis keys and
// singleflight grouping.
func (k CacheKey) String() string {
	return hex.EncodeToString(k[:])
}
