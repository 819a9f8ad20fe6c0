package faultinject

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExhaustPolicy is the rule a Sequencer applies when a key's attempt
// index reaches the end of the sequence. Each Sequencer instance holds
// exactly one policy; the two are not interchangeable and must never be
// mixed within one instance.
type ExhaustPolicy int

const (
	// PolicyResetAndSucceed resets the key's counter to zero and
	// returns a success outcome directly, without consuming an index.
	// The pass after next starts again at index 0.
	PolicyResetAndSucceed ExhaustPolicy = iota

	// PolicyResetAndRestart wraps the key's counter back to zero the
	// moment the final index is consumed, so the next call starts a
	// fresh pass at index 0. A counter found beyond the end (possible
	// when the tracker is shared with direct GetAndIncrement callers)
	// is treated as index 0 of a fresh pass.
	PolicyResetAndRestart
)

func (p ExhaustPolicy) String() string {
	switch p {
	case PolicyResetAndSucceed:
		return "reset-and-succeed"
	case PolicyResetAndRestart:
		return "reset-and-restart"
	}
	return "unknown"
}

// GlobalKey is the key used when one sequence stream is shared by all
// callers. Simple, but concurrent logical calls interleave on the same
// counter; independently-paced callers should use CompositeKey instead.
const GlobalKey = "global"

// CompositeKey builds a per-logical-call key from a caller-supplied
// correlation ID and the scenario descriptor, so concurrent calls with
// the same scenario advance independent counters.
func CompositeKey(correlationID, scenario string) string {
	return correlationID + ":" + scenario
}

// Sequencer replays a parsed scenario sequence, one outcome per call
// per key. It is driven concurrently by the load-test orchestrator;
// its contract is that no two callers ever act on the same attempt
// index for a key, including across wraparound.
type Sequencer struct {
	seq     Sequence
	tracker *AttemptTracker
	policy  ExhaustPolicy
	logger  *zap.Logger
}

// NewSequencer creates a sequencer over seq using tracker for per-key
// attempt state. A nil logger disables logging.
func NewSequencer(seq Sequence, tracker *AttemptTracker, policy ExhaustPolicy, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{seq: seq, tracker: tracker, policy: policy, logger: logger}
}

// Policy returns the exhaustion policy this instance applies.
func (s *Sequencer) Policy() ExhaustPolicy {
	return s.policy
}

// Next advances the attempt counter for key and returns the outcome to
// apply for this call. Safe for concurrent use: the CAS loop guarantees
// a distinct index per caller even when the wrap itself is contended.
func (s *Sequencer) Next(key string) Outcome {
	c := s.tracker.counter(key)
	c.touch()
	length := int64(s.seq.Len())

	for {
		cur := c.n.Load()

		if cur < length {
			next := cur + 1
			if s.policy == PolicyResetAndRestart && next == length {
				// Fresh pass starts immediately on the next call.
				next = 0
			}
			if !c.n.CompareAndSwap(cur, next) {
				continue
			}
			outcome := s.seq.At(int(cur))
			s.logger.Debug("scenario attempt",
				zap.String("key", key),
				zap.String("scenario", s.seq.String()),
				zap.Int64("attempt", cur+1),
				zap.String("outcome", outcome.String()))
			return outcome
		}

		// Counter ran past the end of the sequence.
		switch s.policy {
		case PolicyResetAndSucceed:
			if c.n.CompareAndSwap(cur, 0) {
				s.logger.Info("sequence exhausted, resetting counter and returning success",
					zap.String("key", key),
					zap.String("scenario", s.seq.String()))
				return Outcome{Kind: OutcomeSuccess}
			}
		case PolicyResetAndRestart:
			if c.n.CompareAndSwap(cur, 1) {
				s.logger.Info("sequence exhausted, restarting from first outcome",
					zap.String("key", key),
					zap.String("scenario", s.seq.String()))
				return s.seq.At(0)
			}
		default:
			panic(fmt.Sprintf("faultinject: invalid exhaust policy %d", s.policy))
		}
	}
}

// Call advances the sequence for key and applies the outcome: delay
// outcomes block (honoring ctx), failure outcomes return the
// categorized error, success returns nil.
func (s *Sequencer) Call(ctx context.Context, key string) error {
	return s.Next(key).Do(ctx)
}

// Do applies the outcome from the calling goroutine. Delay and timeout
// outcomes block for their configured hold; cancellation of ctx cuts
// the hold short and returns the context error.
func (o Outcome) Do(ctx context.Context) error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil

	case OutcomeFailure:
		return o.Err()

	case OutcomeDelay, OutcomeTimeout:
		if err := sleepCtx(ctx, o.Delay); err != nil {
			return err
		}
		return o.Err()

	default:
		return fmt.Errorf("faultinject: invalid outcome kind %d", o.Kind)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
