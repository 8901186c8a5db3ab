package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/cache"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	apperrors "github.com/yaanno/mood-tracker-sentiment-analyzer/internal/errors"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/normalize"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/ratelimit"
)

// fakeModel counts invocations and returns a fixed score mapping.
type fakeModel struct {
	mu      sync.Mutex
	calls   atomic.Int64
	scores  map[string]float64
	err     error
	block   chan struct{} // when set, Score waits until closed
	lastArg string
}

func (m *fakeModel) Score(_ context.Context, text string) (map[string]float64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastArg = text
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.scores, nil
}

func (m *fakeModel) ModelName() string { return "fake-model" }

func (m *fakeModel) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArg
}

// failingCache simulates a broken backend for the degraded-to-miss path.
type failingCache struct {
	getErrs atomic.Int64
	putErrs atomic.Int64
}

func (c *failingCache) Get(context.Context, domain.CacheKey) (*domain.Result, bool, error) {
	c.getErrs.Add(1)
	return nil, false, apperrors.CacheError("cache lookup failed", errors.New("backend down"))
}

func (c *failingCache) Put(context.Context, domain.CacheKey, *domain.Result) error {
	c.putErrs.Add(1)
	return apperrors.CacheError("cache store failed", errors.New("backend down"))
}

func newTestService(t *testing.T, model domain.ModelAdapter, clock clockwork.Clock, quota int) (*Service, *cache.Store) {
	t.Helper()
	normalizer := normalize.New(1000, false)
	limiter := ratelimit.New(quota, time.Minute, 100, clock)
	store := cache.New(100, time.Hour, clock)
	return NewService(normalizer, limiter, store, model), store
}

func TestAnalyze_HappyPath(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 0.8, "anger": 0.1, "neutral": 0.1}}
	svc, _ := newTestService(t, model, clock, 10)

	res, err := svc.Analyze(context.Background(), "what a great day", "client-a")
	require.NoError(t, err)

	assert.Equal(t, "what a great day", res.Text)
	assert.Equal(t, "fake-model", res.ModelName)
	require.Len(t, res.Scores, 3)
	assert.Equal(t, "joy", res.Scores[0].Label)
}

func TestAnalyze_ScoresSortedDeterministically(t *testing.T) {
	clock := clockwork.NewFakeClock()
	// anger and fear tie at 0.3; lexical order breaks the tie.
	model := &fakeModel{scores: map[string]float64{"fear": 0.3, "joy": 0.4, "anger": 0.3}}
	svc, _ := newTestService(t, model, clock, 10)

	for i := 0; i < 5; i++ {
		res, err := svc.Analyze(context.Background(), "tie break check", "client-a")
		require.NoError(t, err)

		labels := []string{res.Scores[0].Label, res.Scores[1].Label, res.Scores[2].Label}
		assert.Equal(t, []string{"joy", "anger", "fear"}, labels)
	}
}

func TestAnalyze_CacheHitSkipsModel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	svc, _ := newTestService(t, model, clock, 10)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, "cache me", "client-a")
	require.NoError(t, err)

	second, err := svc.Analyze(ctx, "cache me", "client-a")
	require.NoError(t, err)

	assert.Equal(t, int64(1), model.calls.Load(), "model must be invoked exactly once")
	assert.Equal(t, first, second)
}

func TestAnalyze_EquivalentRawTextsShareCacheEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	svc, _ := newTestService(t, model, clock, 10)
	ctx := context.Background()

	// Both inputs normalize to "Check this out:".
	_, err := svc.Analyze(ctx, "Check this out: http://x.co 😊", "client-a")
	require.NoError(t, err)
	assert.Equal(t, "Check this out:", model.lastText())

	_, err = svc.Analyze(ctx, "  Check   this out: ", "client-a")
	require.NoError(t, err)

	assert.Equal(t, int64(1), model.calls.Load())
}

func TestAnalyze_TTLExpiryTriggersReinference(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	svc, _ := newTestService(t, model, clock, 100)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, "expiring text", "client-a")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = svc.Analyze(ctx, "expiring text", "client-a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), model.calls.Load(), "expired entry must re-invoke the model")
}

func TestAnalyze_RateLimitExceeded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	svc, _ := newTestService(t, model, clock, 2)
	ctx := context.Background()

	// Distinct texts so the cache never short-circuits admission counting.
	_, err := svc.Analyze(ctx, "first text", "client-a")
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, "second text", "client-a")
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, "third text", "client-a")
	require.Error(t, err)

	structured := apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeRateLimited, structured.Type)
	assert.Greater(t, structured.RetryAfter, time.Duration(0))

	// A cache hit still counts against quota: admission happens before lookup.
	_, err = svc.Analyze(ctx, "first text", "client-a")
	require.Error(t, err)
}

func TestAnalyze_ValidationPrecedesAdmission(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	svc, _ := newTestService(t, model, clock, 1)
	ctx := context.Background()

	// Exhaust the quota.
	_, err := svc.Analyze(ctx, "valid text", "client-a")
	require.NoError(t, err)

	// Invalid text from a client at quota reports validation, not rate limit.
	_, err = svc.Analyze(ctx, "😊", "client-a")
	structured := apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)

	// And it consumed no quota: a fresh window is not needed for a new client.
	_, err = svc.Analyze(ctx, "😊", "client-b")
	structured = apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)
	_, err = svc.Analyze(ctx, "still within quota", "client-b")
	assert.NoError(t, err)
}

func TestAnalyze_ModelFailureNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{err: errors.New("inference backend timeout")}
	svc, store := newTestService(t, model, clock, 10)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, "doomed text", "client-a")
	require.Error(t, err)

	structured := apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeInference, structured.Type)
	assert.Equal(t, 0, store.Len(), "failed inference must not populate the cache")

	// Recovery: the next call retries the model instead of serving a failure.
	model.err = nil
	model.scores = map[string]float64{"joy": 1.0}
	_, err = svc.Analyze(ctx, "doomed text", "client-a")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), model.calls.Load())
}

func TestAnalyze_CacheErrorDegradesToMiss(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{scores: map[string]float64{"joy": 1.0}}
	normalizer := normalize.New(1000, false)
	limiter := ratelimit.New(10, time.Minute, 100, clock)
	broken := &failingCache{}
	svc := NewService(normalizer, limiter, broken, model)
	ctx := context.Background()

	res, err := svc.Analyze(ctx, "resilient text", "client-a")
	require.NoError(t, err, "cache failure must never surface to callers")
	assert.Equal(t, "resilient text", res.Text)

	assert.GreaterOrEqual(t, broken.getErrs.Load(), int64(1))
	assert.Equal(t, int64(1), broken.putErrs.Load())
	assert.Equal(t, int64(1), model.calls.Load())
}

func TestAnalyze_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	clock := clockwork.NewFakeClock()
	model := &fakeModel{
		scores: map[string]float64{"joy": 1.0},
		block:  make(chan struct{}),
	}
	svc, _ := newTestService(t, model, clock, 100)
	ctx := context.Background()

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*domain.Result, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Analyze(ctx, "hot key", "client-a")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let all callers pile onto the flight, then release the model.
	assert.Eventually(t, func() bool {
		return model.calls.Load() >= 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(model.block)
	wg.Wait()

	assert.Equal(t, int64(1), model.calls.Load(), "one in-flight computation per key")
	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0], results[i])
	}
}
