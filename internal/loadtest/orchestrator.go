package loadtest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxWorkers caps the submission pool regardless of request
	// count.
	DefaultMaxWorkers = 20

	// DefaultStagger is the per-ordinal submission delay. Staggering
	// makes arrival order deterministic, which is what lets a report
	// name an exact capacity cutoff instead of a racy scatter.
	DefaultStagger = 10 * time.Millisecond

	// DefaultShutdownGrace bounds how long teardown waits for workers
	// to quiesce before abandoning them.
	DefaultShutdownGrace = 5 * time.Second
)

// Operation is a blocking call under test. A nil error is a success;
// any error is recorded as a classified failure. Rejections from the
// operation's own admission control are expected experimental outcomes,
// never retried by the harness.
type Operation func(ctx context.Context) error

// Orchestrator drives N blocking calls against an operation with
// deterministic staggered submission and collects one ExecutionRecord
// per completed call.
//
// A single-purpose scheduler goroutine releases submissions to a
// bounded worker pool at Stagger intervals, so the operation observes
// calls arriving strictly in ordinal order. Completion order carries no
// guarantee; records are sorted by ordinal after the fact.
type Orchestrator struct {
	// MaxWorkers bounds the submission pool (effective size is
	// min(requestCount, MaxWorkers)). Zero means DefaultMaxWorkers.
	MaxWorkers int

	// Stagger is the delay between consecutive submissions. Zero
	// means DefaultStagger.
	Stagger time.Duration

	// ShutdownGrace bounds teardown. Zero means DefaultShutdownGrace.
	ShutdownGrace time.Duration

	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator with default sizing. A nil
// logger disables logging.
func NewOrchestrator(logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		MaxWorkers:    DefaultMaxWorkers,
		Stagger:       DefaultStagger,
		ShutdownGrace: DefaultShutdownGrace,
		logger:        logger,
	}
}

func (o *Orchestrator) maxWorkers() int {
	if o.MaxWorkers > 0 {
		return o.MaxWorkers
	}
	return DefaultMaxWorkers
}

func (o *Orchestrator) stagger() time.Duration {
	if o.Stagger > 0 {
		return o.Stagger
	}
	return DefaultStagger
}

func (o *Orchestrator) shutdownGrace() time.Duration {
	if o.ShutdownGrace > 0 {
		return o.ShutdownGrace
	}
	return DefaultShutdownGrace
}

// Run submits requestCount calls to op and blocks until every call has
// recorded an outcome or maxWait elapses, whichever comes first. On a
// shortfall it logs a warning and returns the partial record set;
// outstanding calls are not cancelled, they are simply absent from the
// result. Every submitted call yields at most one record, never a
// duplicate and never a fabricated one.
func (o *Orchestrator) Run(ctx context.Context, op Operation, requestCount int, maxWait time.Duration) []ExecutionRecord {
	if requestCount <= 0 {
		return nil
	}

	results := newResultSet(requestCount)
	barrier := newCompletionBarrier(requestCount)
	testStart := time.Now()

	pool := newWorkerPool("load", min(requestCount, o.maxWorkers()), requestCount, o.logger)
	stop := make(chan struct{})
	var schedWg sync.WaitGroup

	schedWg.Add(1)
	go func() {
		defer schedWg.Done()
		o.runScheduler(ctx, stop, pool, requestCount, func(ordinal int, worker string) {
			o.execute(ctx, op, ordinal, worker, testStart, results, barrier)
		})
	}()

	defer func() {
		close(stop)
		schedWg.Wait()
		_ = pool.shutdown(o.shutdownGrace())
	}()

	if !barrier.wait(maxWait) {
		o.logger.Warn("load test wait budget exhausted, assembling partial report",
			zap.Int("requested", requestCount),
			zap.Int("outstanding", barrier.pending()),
			zap.Duration("maxWait", maxWait))
	}

	return results.sorted()
}

// runScheduler releases one submission per stagger interval, in ordinal
// order. It stops early on cancellation or when the pool closes.
func (o *Orchestrator) runScheduler(ctx context.Context, stop <-chan struct{}, pool *workerPool, requestCount int, task func(ordinal int, worker string)) {
	stagger := o.stagger()
	for i := 0; i < requestCount; i++ {
		if i > 0 {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(stagger):
			}
		}
		ordinal := i + 1
		if !pool.submit(func(worker string) { task(ordinal, worker) }) {
			return
		}
	}
}

// execute runs one call and records its outcome. A panic inside op is a
// malformed operation contract and is deliberately not recovered.
func (o *Orchestrator) execute(ctx context.Context, op Operation, ordinal int, worker string, testStart time.Time, results *resultSet, barrier *completionBarrier) {
	start := time.Now()
	o.logger.Debug("request starting",
		zap.Int("ordinal", ordinal),
		zap.String("worker", worker))

	err := op(ctx)
	duration := time.Since(start)

	rec := ExecutionRecord{
		Ordinal:         ordinal,
		Status:          StatusSuccess,
		Executor:        worker,
		DurationMs:      duration.Milliseconds(),
		RelativeStartMs: start.Sub(testStart).Milliseconds(),
	}
	if err != nil {
		rec.Status = StatusFailed
		rec.FailureReason = err.Error()
		o.logger.Warn("request failed",
			zap.Int("ordinal", ordinal),
			zap.Duration("duration", duration),
			zap.String("reason", err.Error()))
	} else {
		o.logger.Debug("request completed",
			zap.Int("ordinal", ordinal),
			zap.Duration("duration", duration))
	}

	if results.put(rec) {
		barrier.countDown()
	}
}
