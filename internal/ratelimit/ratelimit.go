// Package ratelimit is an injected rate-limiting capability with explicit
// reset semantics and a pluggable backing store. The anonymous emergency
// redemption endpoint is its primary consumer, keyed by client IP.
package ratelimit

import (
	"context"
	"time"

	dErrors "curanet/pkg/domain-errors"
)

// Result describes the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Store tracks request counts per key over a sliding window.
type Store interface {
	// Allow records one request against the key and reports whether it fits
	// within limit over the window, evaluated at the given time.
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*Result, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error

	// Prune drops keys with no activity inside the window; run periodically
	// so abandoned keys do not accumulate.
	Prune(ctx context.Context, now time.Time) (int, error)
}

// Limiter binds a store to one endpoint's limit and window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow checks and consumes one unit for the key.
func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (*Result, error) {
	result, err := l.store.Allow(ctx, key, l.limit, l.window, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check")
	}
	return result, nil
}

// Reset clears the counter for a key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
