// Package ratelimit implements the fixed-window limiter guarding the API
// namespace.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 60
	DefaultWindow = 60 * time.Second
)

// Window is the state of one client's current window after a hit.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Store counts hits per client. Hit must start a fresh window (count 1,
// reset at now+window) when none exists or the previous one has elapsed, and
// increment otherwise.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
}

// Decision is the outcome for one request.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	// RetryAfter is whole seconds until ResetAt, rounded up. Set on rejection.
	RetryAfter int64
}

type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
	now    func() time.Time
}

func New(store Store, limit int64, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records a hit for id. A request is rejected once the post-increment
// count exceeds the limit.
func (l *Limiter) Allow(ctx context.Context, id string) (Decision, error) {
	now := l.now()

	w, err := l.store.Hit(ctx, id, now, l.window)
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: now.Add(l.window)}, err
	}

	d := Decision{
		Allowed:   w.Count <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-w.Count),
		ResetAt:   w.ResetAt,
	}

	if !d.Allowed {
		d.RetryAfter = retryAfter(w.ResetAt.Sub(now))
	}

	return d, nil
}

func retryAfter(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}
