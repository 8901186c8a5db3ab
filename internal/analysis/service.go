// Package analysis hosts the request orchestration pipeline between the
// transport layer and the model: normalization, rate limiting, result
// caching, and model invocation with defined ordering and error taxonomy.
package analysis

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/metrics"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/normalize"
)

// Service orchestrates a single analyze call: normalize, admit, cache lookup,
// score, populate. All state lives in the injected components; the service
// itself only sequences them.
type Service struct {
	normalizer *normalize.Normalizer
	limiter    domain.RateLimiter
	cache      domain.ResultCache
	model      domain.ModelAdapter
	group      singleflight.Group
}

// NewService wires the pipeline components together.
func NewService(normalizer *normalize.Normalizer, limiter domain.RateLimiter, cache domain.ResultCache, model domain.ModelAdapter) *Service {
	return &Service{
		normalizer: normalizer,
		limiter:    limiter,
		cache:      cache,
		model:      model,
	}
}

// Analyze runs the scoring pipeline for rawText on behalf of clientID.
//
// Ordering is deliberate: normalization runs before admission so malformed
// requests never consume quota. A cache hit returns without touching the
// model. On a miss, concurrent callers for the same key are collapsed into a
// single model invocation and share its result.
func (s *Service) Analyze(ctx context.Context, rawText, clientID string) (*domain.Result, error) {
	text, err := s.normalizer.Normalize(rawText)
	if err != nil {
		return nil, err
	}

	if d := s.limiter.Admit(clientID); !d.Allowed {
		metrics.RateLimitRejections.Inc()
		return nil, apperrors.RateLimitError("rate limit exceeded", d.RetryAfter)
	}

	key := domain.KeyFor(text)

	if res, ok := s.lookup(ctx, key); ok {
		metrics.CacheHits.Inc()
		return res, nil
	}
	metrics.CacheMisses.Inc()

	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		// Another flight may have populated the cache between our lookup and
		// acquiring the flight; re-check before paying for inference.
		if res, ok := s.lookup(ctx, key); ok {
			return res, nil
		}

		res, err := s.score(ctx, text)
		if err != nil {
			return nil, err
		}

		// A failing cache backend degrades to "not cached"; the result is
		// still served.
		if err := s.cache.Put(ctx, key, res); err != nil {
			metrics.CacheDegraded.Inc()
			slog.Warn("Failed to populate result cache", "error", err, "key", key.String())
		}

		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		metrics.InferenceShared.Inc()
	}

	return v.(*domain.Result), nil
}

// lookup wraps cache.Get, degrading backend errors to a miss.
func (s *Service) lookup(ctx context.Context, key domain.CacheKey) (*domain.Result, bool) {
	res, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheDegraded.Inc()
		slog.Warn("Cache lookup failed, treating as miss", "error", err, "key", key.String())
		return nil, false
	}
	return res, ok
}

// score invokes the model adapter and shapes its raw label/confidence mapping
// into a deterministic result: descending score, label-lexical tie-break.
func (s *Service) score(ctx context.Context, text string) (*domain.Result, error) {
	start := time.Now()
	raw, err := s.model.Score(ctx, text)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceErrors.Inc()
		return nil, apperrors.AsInferenceError(err)
	}

	scores := make([]domain.ScoreEntry, 0, len(raw))
	for label, score := range raw {
		scores = append(scores, domain.ScoreEntry{Label: label, Score: score})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Label < scores[j].Label
	})

	return &domain.Result{
		Text:      text,
		Scores:    scores,
		ModelName: s.model.ModelName(),
	}, nil
}
