package faultinject

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAttemptTracker_GetAndIncrement(t *testing.T) {
	tracker := NewAttemptTracker()

	for want := 0; want < 5; want++ {
		if got := tracker.GetAndIncrement("k"); got != want {
			t.Fatalf("GetAndIncrement() = %d, want %d", got, want)
		}
	}

	tracker.Reset("k")
	if got := tracker.GetAndIncrement("k"); got != 0 {
		t.Errorf("after Reset, GetAndIncrement() = %d, want 0", got)
	}
}

func TestAttemptTracker_KeysAreIndependent(t *testing.T) {
	tracker := NewAttemptTracker()

	for i := 0; i < 10; i++ {
		tracker.GetAndIncrement("a")
	}
	if got := tracker.GetAndIncrement("b"); got != 0 {
		t.Errorf("key b first value = %d, want 0 (key a must not advance it)", got)
	}
	if got := tracker.Value("a"); got != 10 {
		t.Errorf("key a value = %d, want 10", got)
	}
}

// Every concurrent caller must observe a distinct previous value; no
// increment may be lost, including the racing creation of the counter.
func TestAttemptTracker_ConcurrentDistinctValues(t *testing.T) {
	const goroutines = 50
	const perGoroutine = 200

	tracker := NewAttemptTracker()
	values := make(chan int, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				values <- tracker.GetAndIncrement("shared")
			}
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int]bool, goroutines*perGoroutine)
	for v := range values {
		if seen[v] {
			t.Fatalf("value %d observed twice", v)
		}
		seen[v] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Errorf("distinct values = %d, want %d", len(seen), goroutines*perGoroutine)
	}
	if got := tracker.Value("shared"); got != goroutines*perGoroutine {
		t.Errorf("final counter = %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestAttemptTracker_Sweep(t *testing.T) {
	tracker := NewAttemptTracker()
	for i := 0; i < 5; i++ {
		tracker.GetAndIncrement(fmt.Sprintf("key-%d", i))
	}
	if got := tracker.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	time.Sleep(20 * time.Millisecond)
	tracker.GetAndIncrement("key-0") // keep one fresh

	removed := tracker.Sweep(10 * time.Millisecond)
	if removed != 4 {
		t.Errorf("Sweep() removed %d, want 4", removed)
	}
	if got := tracker.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
	if got := tracker.Value("key-0"); got != 2 {
		t.Errorf("surviving counter = %d, want 2", got)
	}
}
