package loadtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// semaphoreOp mimics a fixed-capacity operation: up to limit concurrent
// calls hold a slot for holdFor; further callers wait up to slotWait
// for a slot before being rejected.
type semaphoreOp struct {
	slots    chan struct{}
	holdFor  time.Duration
	slotWait time.Duration
}

func newSemaphoreOp(limit int, holdFor, slotWait time.Duration) *semaphoreOp {
	return &semaphoreOp{
		slots:    make(chan struct{}, limit),
		holdFor:  holdFor,
		slotWait: slotWait,
	}
}

func (s *semaphoreOp) call(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
		select {
		case <-time.After(s.holdFor):
		case <-ctx.Done():
		}
		return nil
	case <-time.After(s.slotWait):
		return errors.New("bulkhead is full: wait timeout expired, no slot available")
	}
}

func TestOrchestrator_AllSucceedWithinCapacity(t *testing.T) {
	op := newSemaphoreOp(10, 20*time.Millisecond, 50*time.Millisecond)
	orch := NewOrchestrator(zap.NewNop())
	orch.Stagger = time.Millisecond

	records := orch.Run(context.Background(), op.call, 8, 5*time.Second)

	require.Len(t, records, 8)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Ordinal, "records must be sorted by ordinal with no gaps")
		assert.Equal(t, StatusSuccess, rec.Status)
		assert.NotEmpty(t, rec.Executor)
		assert.Empty(t, rec.Submitter, "blocking calls resolve on the submitting worker")
	}
}

func TestOrchestrator_CleanCapacityCutoff(t *testing.T) {
	// Capacity 5, no queue. Slots are held far longer than the full
	// submission window, so under staggered arrival exactly the first
	// five ordinals can ever hold a slot.
	op := newSemaphoreOp(5, 600*time.Millisecond, 100*time.Millisecond)
	orch := NewOrchestrator(zap.NewNop())

	records := orch.Run(context.Background(), op.call, 10, 5*time.Second)
	require.Len(t, records, 10)

	var failed []int
	for _, rec := range records {
		if rec.Status == StatusFailed {
			failed = append(failed, rec.Ordinal)
			assert.Contains(t, rec.FailureReason, "wait timeout")
		}
	}
	assert.Equal(t, []int{6, 7, 8, 9, 10}, failed)
}

func TestOrchestrator_RejectedCallerWaitsForSlot(t *testing.T) {
	// Fixed capacity 3 with a 300ms slot wait; four calls each holding
	// the slot 900ms. The fourth call must fail after waiting out the
	// slot timeout, bounded between the wait and the hold.
	op := newSemaphoreOp(3, 900*time.Millisecond, 300*time.Millisecond)
	orch := NewOrchestrator(zap.NewNop())

	records := orch.Run(context.Background(), op.call, 4, 5*time.Second)
	require.Len(t, records, 4)

	var failures []ExecutionRecord
	for _, rec := range records {
		if rec.Status == StatusFailed {
			failures = append(failures, rec)
		}
	}
	require.Len(t, failures, 1, "exactly one call exceeds capacity")
	assert.Equal(t, 4, failures[0].Ordinal)
	assert.GreaterOrEqual(t, failures[0].DurationMs, int64(280), "failure should come after the slot wait")
	assert.Less(t, failures[0].DurationMs, int64(900), "failure must not wait out the full hold")
}

func TestOrchestrator_PartialReportOnWaitBudget(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	stuck := func(ctx context.Context) error {
		<-block
		return nil
	}

	orch := NewOrchestrator(zap.NewNop())
	orch.Stagger = time.Millisecond
	orch.ShutdownGrace = 50 * time.Millisecond

	start := time.Now()
	records := orch.Run(context.Background(), stuck, 5, 100*time.Millisecond)

	assert.Empty(t, records, "no call completed, so no record may be fabricated")
	assert.Less(t, time.Since(start), 2*time.Second, "wait budget plus grace must bound the run")
}

func TestOrchestrator_SubmissionOrderIsStaggered(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }
	orch := NewOrchestrator(zap.NewNop())

	records := orch.Run(context.Background(), noop, 6, 5*time.Second)
	require.Len(t, records, 6)

	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i].RelativeStartMs, records[i-1].RelativeStartMs,
			"ordinal %d must not start before ordinal %d", records[i].Ordinal, records[i-1].Ordinal)
	}
	// Last submission leaves at least (N-1) stagger intervals after the first.
	assert.GreaterOrEqual(t, records[5].RelativeStartMs-records[0].RelativeStartMs, int64(40))
}

func TestOrchestrator_ZeroRequests(t *testing.T) {
	orch := NewOrchestrator(zap.NewNop())
	records := orch.Run(context.Background(), func(ctx context.Context) error { return nil }, 0, time.Second)
	assert.Empty(t, records)
}

func TestResultSet_SingleAssignment(t *testing.T) {
	rs := newResultSet(2)
	assert.True(t, rs.put(ExecutionRecord{Ordinal: 1, Status: StatusSuccess}))
	assert.False(t, rs.put(ExecutionRecord{Ordinal: 1, Status: StatusFailed}), "second write for an ordinal must lose")

	records := rs.sorted()
	require.Len(t, records, 1)
	assert.Equal(t, StatusSuccess, records[0].Status)
}
