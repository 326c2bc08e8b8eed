package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow_UpToMaxWithinWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10, 5*time.Minute, clock.Now)

	// Attempts 1..10 are allowed, the 11th is not.
	for i := 1; i <= 10; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("attempt 11 should be rejected")
	}
	// And it stays rejected for the rest of the window.
	clock.Advance(1 * time.Minute)
	if l.Allow("1.2.3.4") {
		t.Fatal("attempt 12 within the same window should be rejected")
	}
}

func TestAllow_WindowRolloverResetsCounter(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10, 5*time.Minute, clock.Now)

	for i := 0; i < 11; i++ {
		l.Allow("key")
	}
	if l.Allow("key") {
		t.Fatal("key should be limited before rollover")
	}

	clock.Advance(5*time.Minute + time.Second)

	if !l.Allow("key") {
		t.Fatal("key should be allowed after the window elapsed")
	}
	// Counter restarted at 1, so 9 more attempts fit.
	for i := 0; i < 9; i++ {
		if !l.Allow("key") {
			t.Fatalf("attempt %d of the fresh window should be allowed", i+2)
		}
	}
	if l.Allow("key") {
		t.Fatal("11th attempt of the fresh window should be rejected")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(2, time.Minute, clock.Now)

	l.Allow("a")
	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("a should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("b must not be affected by a's budget")
	}
}

func TestAllow_EvictsStaleBuckets(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10, time.Minute, clock.Now)

	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	// Everything expires; the next Allow triggers a sweep.
	clock.Advance(2 * time.Minute)
	l.Allow("d")

	if got := l.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1 (only the fresh key)", got)
	}
}

func TestAllow_ConcurrentAttemptsDoNotUndercount(t *testing.T) {
	l := New(50, time.Minute)

	// 100 goroutines hammer the same key. With synchronized counting exactly
	// 50 must be allowed — lost updates would let more through.
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}
