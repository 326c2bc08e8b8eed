// Package ratelimit bounds the number of login attempts per client address.
//
// SLIDING WINDOW, PER KEY:
// Each client key owns a bucket of {count, windowStart}. The first attempt
// from a key (or the first after its window elapsed) resets the bucket to
// {1, now}. Every attempt within the window increments the count; the call
// reports false once the count exceeds the maximum. Every login POST counts,
// successful or not — the limiter cannot tell and does not care.
//
// THIS IS THE ONLY SHARED MUTABLE STATE IN THE PROCESS.
// Requests are handled concurrently, so the bucket map is guarded by a
// mutex. The operations inside the critical section are a map lookup and an
// integer increment; contention is not a concern at login-endpoint rates.
//
// MEMORY BOUND:
// Buckets are created lazily per key and would otherwise accumulate forever
// (one per client address seen since process start). Allow sweeps expired
// buckets at most once per window, which keeps the map proportional to the
// number of clients active within the last window.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// Limiter is a concurrency-safe sliding-window counter keyed by an opaque
// client string (normally the client IP). Construct once per process and
// inject into the login handler; a zero Limiter is not usable.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]bucket

	max    int
	window time.Duration

	// now is an injectable clock so tests can roll the window deterministically.
	now func() time.Time

	lastSweep time.Time
}

// New creates a Limiter allowing max attempts per key within window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]bucket),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// NewWithClock creates a Limiter with an explicit time source. Tests use this
// to advance time without sleeping.
func NewWithClock(max int, window time.Duration, now func() time.Time) *Limiter {
	l := New(max, window)
	l.now = now
	return l
}

// Allow records one attempt for key and reports whether it is within budget.
// It never fails; the caller turns a false return into a 429.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) > l.window {
		// First attempt ever, or first attempt of a fresh window.
		l.buckets[key] = bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	l.buckets[key] = b
	return b.count <= l.max
}

// sweepLocked drops buckets whose window has fully elapsed. Runs at most once
// per window so steady traffic doesn't pay a full map scan on every attempt.
// Caller must hold l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.windowStart) > l.window {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of live buckets. Used by tests to verify eviction.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
