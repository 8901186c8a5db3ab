package domain

import "time"

// Decision is the outcome of a rate limiter admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is the time until the client's window resets.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// RateLimiter enforces per-client request admission over a time window.
type RateLimiter interface {
	// Admit records a request attempt for clientID and reports whether it is
	// allowed. The quota increment is charged at admission time regardless of
	// whether the downstream work completes.
	Admit(clientID string) Decision
}
