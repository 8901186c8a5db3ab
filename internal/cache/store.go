// Package cache provides the in-process result cache: TTL expiry with
// least-recently-used eviction under a fixed entry bound.
package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/metrics"
)

type entry struct {
	key       domain.CacheKey
	value     *domain.Result
	createdAt time.Time
	expiresAt time.Time
}

// expired reports whether e is stale at the given instant. Kept as a pure
// function of (entry, now) so tests can probe expiry with arbitrary clocks.
func expired(e *entry, now time.Time) bool {
	return now.After(e.expiresAt)
}

// Store is a bounded TTL cache of sentiment results. Both Get and Put refresh
// an entry's recency; when the entry bound is exceeded the least-recently-used
// entry is evicted. An expired entry is never returned: it is purged lazily on
// access and by the periodic sweep.
//
// Values are immutable once stored, published by a single reference swap, so
// readers never observe a torn result.
type Store struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	ttl        time.Duration
	maxEntries int
	entries    map[domain.CacheKey]*list.Element
	order      *list.List // front = most recently used
}

// New creates a Store holding at most maxEntries results, each fresh for ttl.
func New(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[domain.CacheKey]*list.Element),
		order:      list.New(),
	}
}

// Get returns the cached result and true on a fresh hit. A hit refreshes the
// entry's recency. An expired entry is removed and reported as a miss.
func (s *Store) Get(_ context.Context, key domain.CacheKey) (*domain.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	e := el.Value.(*entry)
	if expired(e, s.clock.Now()) {
		s.removeElement(el)
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		return nil, false, nil
	}

	s.order.MoveToFront(el)
	return e.value, true, nil
}

// Put inserts or overwrites the entry for key, stamping a fresh TTL. Inserting
// past the entry bound evicts the least-recently-used entry first.
func (s *Store) Put(_ context.Context, key domain.CacheKey, value *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.createdAt = now
		e.expiresAt = now.Add(s.ttl)
		s.order.MoveToFront(el)
		return nil
	}

	if s.order.Len() >= s.maxEntries {
		if back := s.order.Back(); back != nil {
			s.removeElement(back)
			metrics.CacheEvictions.WithLabelValues("lru").Inc()
		}
	}

	el := s.order.PushFront(&entry{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	})
	s.entries[key] = el
	metrics.CacheSize.Set(float64(s.order.Len()))
	return nil
}

// Len returns the current number of entries, including not-yet-purged
// expired ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// EvictExpired removes all expired entries and returns the count evicted.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	evicted := 0

	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if expired(el.Value.(*entry), now) {
			s.removeElement(el)
			evicted++
		}
		el = prev
	}

	metrics.CacheEvictions.WithLabelValues("expired").Add(float64(evicted))
	return evicted
}

// StartEvictionTimer starts a background goroutine that periodically evicts
// expired entries. Returns a stop function to clean up the goroutine.
func (s *Store) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				evicted := s.EvictExpired()
				if evicted > 0 {
					slog.Debug("Evicted expired result cache entries",
						"count", evicted,
						"remaining", s.Len(),
					)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

// removeElement drops an entry from both the map and the recency list.
// Must be called with mu held.
func (s *Store) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.entries, e.key)
	s.order.Remove(el)
	metrics.CacheSize.Set(float64(s.order.Len()))
}
