package loadtest

import (
	"sync"
	"sync/atomic"
	"time"
)

// completionBarrier releases waiters once countDown has been called n
// times, or when a waiter's budget expires first.
type completionBarrier struct {
	remaining atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

func newCompletionBarrier(n int) *completionBarrier {
	b := &completionBarrier{done: make(chan struct{})}
	b.remaining.Store(int64(n))
	if n <= 0 {
		b.closeOnce.Do(func() { close(b.done) })
	}
	return b
}

func (b *completionBarrier) countDown() {
	if b.remaining.Add(-1) <= 0 {
		b.closeOnce.Do(func() { close(b.done) })
	}
}

// wait blocks until the barrier releases or timeout elapses, reporting
// whether all countdowns arrived in time.
func (b *completionBarrier) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.done:
		return true
	case <-timer.C:
		return false
	}
}

// pending returns how many countdowns are still outstanding.
func (b *completionBarrier) pending() int {
	n := b.remaining.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
