// Package ratelimit provides sliding-window admission control for sensitive
// action categories.
package ratelimit

import (
	"sync"
	"time"
)

// Limit caps how many actions a category may perform inside a window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Status reports the current usage of one category's window.
type Status struct {
	Current       int `json:"current"`
	Max           int `json:"max"`
	WindowSeconds int `json:"window_seconds"`
}

type bucket struct {
	limit  Limit
	stamps []time.Time
}

// purge drops timestamps that fell out of the window.
func (b *bucket) purge(now time.Time) {
	cutoff := now.Add(-b.limit.Window)
	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept
}

// Limiter admits or denies actions per category. Unknown categories are
// always permitted; configured categories are denied at their limit.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New returns a Limiter for the given category limits.
func New(limits map[string]Limit) *Limiter {
	buckets := make(map[string]*bucket, len(limits))
	for category, limit := range limits {
		buckets[category] = &bucket{limit: limit}
	}
	return &Limiter{buckets: buckets, now: time.Now}
}

// SetClock overrides the limiter's clock. Test use only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Allow purges stale timestamps for the category, then admits the action if
// the retained count is below the limit. Denied calls do not mutate state.
func (l *Limiter) Allow(category string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[category]
	if !ok {
		return true
	}

	now := l.now()
	b.purge(now)
	if len(b.stamps) >= b.limit.Max {
		return false
	}
	b.stamps = append(b.stamps, now)
	return true
}

// Count returns the number of admitted actions in the category's current
// window.
func (l *Limiter) Count(category string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[category]
	if !ok {
		return 0
	}
	b.purge(l.now())
	return len(b.stamps)
}

// StatusAll reports usage of every configured category.
func (l *Limiter) StatusAll() map[string]Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make(map[string]Status, len(l.buckets))
	for category, b := range l.buckets {
		b.purge(now)
		out[category] = Status{
			Current:       len(b.stamps),
			Max:           b.limit.Max,
			WindowSeconds: int(b.limit.Window / time.Second),
		}
	}
	return out
}

// Reset clears all recorded timestamps for a category.
func (l *Limiter) Reset(category string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[category]; ok {
		b.stamps = nil
	}
}
