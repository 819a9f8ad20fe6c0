package faultinject

import (
	"sync"
	"sync/atomic"
	"time"
)

// AttemptTracker maps arbitrary keys to monotonically-advancing attempt
// counters, created lazily on first use.
//
// # Thread Safety
//
// AttemptTracker is safe for concurrent use. Counter creation is
// first-writer-wins (two racing callers for an unseen key always end up
// sharing one counter), and all updates are atomic: under arbitrary
// concurrent callers on the same key, every GetAndIncrement observes a
// distinct previous value and no increment is lost.
type AttemptTracker struct {
	counters sync.Map // key string -> *attemptCounter
}

type attemptCounter struct {
	n       atomic.Int64
	touched atomic.Int64 // unix nanos of last access, for Sweep
}

func (c *attemptCounter) touch() {
	c.touched.Store(time.Now().UnixNano())
}

// NewAttemptTracker creates an empty tracker.
func NewAttemptTracker() *AttemptTracker {
	return &AttemptTracker{}
}

// counter returns the attempt counter for key, creating it if needed.
func (t *AttemptTracker) counter(key string) *attemptCounter {
	if c, ok := t.counters.Load(key); ok {
		return c.(*attemptCounter)
	}
	c, _ := t.counters.LoadOrStore(key, &attemptCounter{})
	return c.(*attemptCounter)
}

// GetAndIncrement atomically advances the counter for key and returns
// the value it held before the increment.
func (t *AttemptTracker) GetAndIncrement(key string) int {
	c := t.counter(key)
	c.touch()
	return int(c.n.Add(1) - 1)
}

// Reset sets the counter for key back to zero. A key that was never
// seen stays absent.
func (t *AttemptTracker) Reset(key string) {
	if c, ok := t.counters.Load(key); ok {
		counter := c.(*attemptCounter)
		counter.touch()
		counter.n.Store(0)
	}
}

// Value returns the current counter value for key, or zero for a key
// that was never seen.
func (t *AttemptTracker) Value(key string) int {
	if c, ok := t.counters.Load(key); ok {
		return int(c.(*attemptCounter).n.Load())
	}
	return 0
}

// Len returns the number of live counters.
func (t *AttemptTracker) Len() int {
	n := 0
	t.counters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep removes counters that have not been touched within maxIdle and
// returns how many were removed. Long-lived trackers (the mock API
// server keys one counter per correlation ID) call this periodically so
// the registry does not grow without bound.
func (t *AttemptTracker) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle).UnixNano()
	removed := 0
	t.counters.Range(func(key, value any) bool {
		if value.(*attemptCounter).touched.Load() < cutoff {
			t.counters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
