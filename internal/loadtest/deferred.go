package loadtest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeferredOperation is a call under test that returns immediately with
// a promise resolved later by the operation's own execution context
// (typically its internal pool). A synchronous rejection is expressed
// as an already-rejected promise. Returning nil is a malformed
// operation contract and panics.
type DeferredOperation func(ctx context.Context) *Promise

// DeferredOrchestrator has the same external contract as Orchestrator
// but for deferred-result operations. Submitting workers register
// continuations instead of blocking, so the submission pool never
// becomes a secondary bottleneck in front of the operation's own
// concurrency limit.
//
// Each record captures both identities: the harness worker that
// submitted the call and the context that resolved it. For
// pool-isolated operations the two are expected to differ, and that
// difference is a primary report field.
type DeferredOrchestrator struct {
	MaxWorkers    int
	Stagger       time.Duration
	ShutdownGrace time.Duration

	logger *zap.Logger
}

// NewDeferredOrchestrator creates a deferred orchestrator with default
// sizing. A nil logger disables logging.
func NewDeferredOrchestrator(logger *zap.Logger) *DeferredOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeferredOrchestrator{
		MaxWorkers:    DefaultMaxWorkers,
		Stagger:       DefaultStagger,
		ShutdownGrace: DefaultShutdownGrace,
		logger:        logger,
	}
}

// Run submits requestCount deferred calls to op and blocks until every
// promise has settled into a record or maxWait elapses. Shortfalls are
// logged and yield a partial record set, exactly as in
// Orchestrator.Run. Exactly-once recording per ordinal is enforced
// under the race between the success and failure continuations.
func (d *DeferredOrchestrator) Run(ctx context.Context, op DeferredOperation, requestCount int, maxWait time.Duration) []ExecutionRecord {
	if requestCount <= 0 {
		return nil
	}

	// Reuse the blocking orchestrator's scheduling and teardown; only
	// the per-call completion differs.
	inner := &Orchestrator{
		MaxWorkers:    d.MaxWorkers,
		Stagger:       d.Stagger,
		ShutdownGrace: d.ShutdownGrace,
		logger:        d.logger,
	}

	results := newResultSet(requestCount)
	barrier := newCompletionBarrier(requestCount)
	testStart := time.Now()

	pool := newWorkerPool("submit", min(requestCount, inner.maxWorkers()), requestCount, d.logger)
	stop := make(chan struct{})
	var schedWg sync.WaitGroup

	schedWg.Add(1)
	go func() {
		defer schedWg.Done()
		inner.runScheduler(ctx, stop, pool, requestCount, func(ordinal int, worker string) {
			d.submitDeferred(ctx, op, ordinal, worker, testStart, results, barrier)
		})
	}()

	defer func() {
		close(stop)
		schedWg.Wait()
		_ = pool.shutdown(inner.shutdownGrace())
	}()

	if !barrier.wait(maxWait) {
		d.logger.Warn("deferred load test wait budget exhausted, assembling partial report",
			zap.Int("requested", requestCount),
			zap.Int("outstanding", barrier.pending()),
			zap.Duration("maxWait", maxWait))
	}

	return results.sorted()
}

// submitDeferred starts one deferred call and registers the two
// completion branches. The submitting worker returns as soon as the
// continuations are registered.
func (d *DeferredOrchestrator) submitDeferred(ctx context.Context, op DeferredOperation, ordinal int, worker string, testStart time.Time, results *resultSet, barrier *completionBarrier) {
	start := time.Now()
	d.logger.Debug("request submitting",
		zap.Int("ordinal", ordinal),
		zap.String("submitter", worker))

	promise := op(ctx)
	if promise == nil {
		panic("loadtest: deferred operation returned a nil promise")
	}

	record := func(resolvedBy string, err error) {
		duration := time.Since(start)
		executor := resolvedBy
		if executor == "" {
			executor = worker
		}
		rec := ExecutionRecord{
			Ordinal:         ordinal,
			Status:          StatusSuccess,
			Executor:        executor,
			Submitter:       worker,
			DurationMs:      duration.Milliseconds(),
			RelativeStartMs: start.Sub(testStart).Milliseconds(),
		}
		if err != nil {
			rec.Status = StatusFailed
			rec.FailureReason = err.Error()
			d.logger.Warn("request failed",
				zap.Int("ordinal", ordinal),
				zap.Duration("duration", duration),
				zap.String("reason", err.Error()))
		} else {
			d.logger.Debug("request completed",
				zap.Int("ordinal", ordinal),
				zap.Duration("duration", duration),
				zap.String("executor", executor))
		}
		if results.put(rec) {
			barrier.countDown()
		}
	}

	promise.Then(
		func(resolvedBy string) { record(resolvedBy, nil) },
		func(resolvedBy string, err error) { record(resolvedBy, err) },
	)
}
