// Package ratelimit implements fixed-window request admission per client.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/domain"
	"github.com/yaanno/mood-tracker-sentiment-analyzer/internal/metrics"
)

type clientWindow struct {
	windowStart time.Time
	count       int
	lastSeen    time.Time
}

// Limiter counts requests per client over a fixed window. The read-increment-
// write sequence for a client is serialized under a single mutex, so two
// concurrent admissions can never both slip past the quota.
//
// Memory is bounded: at most maxClients windows are tracked, and the
// least-recently-seen client is evicted to admit a new one. An evicted client
// that returns gets a fresh window, a rare false reset traded for a hard
// memory bound.
type Limiter struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	quota      int
	window     time.Duration
	maxClients int
	windows    map[string]*clientWindow
}

// New creates a Limiter admitting quota requests per window per client,
// tracking at most maxClients distinct clients.
func New(quota int, window time.Duration, maxClients int, clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:      clock,
		quota:      quota,
		window:     window,
		maxClients: maxClients,
		windows:    make(map[string]*clientWindow),
	}
}

// Admit records a request attempt for clientID. An unknown client starts a
// fresh window with count 1. Within a window, requests are allowed until the
// quota is reached; past it, the decision carries the time until the window
// resets.
func (l *Limiter) Admit(clientID string) domain.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	w, ok := l.windows[clientID]
	if !ok {
		if len(l.windows) >= l.maxClients {
			l.evictOldest()
		}
		l.windows[clientID] = &clientWindow{windowStart: now, count: 1, lastSeen: now}
		metrics.RateLimitTrackedClients.Set(float64(len(l.windows)))
		return domain.Decision{Allowed: true}
	}

	w.lastSeen = now

	if now.Sub(w.windowStart) >= l.window {
		w.windowStart = now
		w.count = 1
		return domain.Decision{Allowed: true}
	}

	if w.count < l.quota {
		w.count++
		return domain.Decision{Allowed: true}
	}

	retryAfter := w.windowStart.Add(l.window).Sub(now)
	return domain.Decision{Allowed: false, RetryAfter: retryAfter}
}

// TrackedClients returns the number of client windows currently held.
func (l *Limiter) TrackedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// evictOldest drops the least-recently-seen client window.
// Must be called with mu held.
func (l *Limiter) evictOldest() {
	var oldestID string
	var oldestSeen time.Time

	for id, w := range l.windows {
		if oldestID == "" || w.lastSeen.Before(oldestSeen) {
			oldestID = id
			oldestSeen = w.lastSeen
		}
	}

	if oldestID != "" {
		delete(l.windows, oldestID)
	}
}
