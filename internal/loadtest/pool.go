package loadtest

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// workerPool is a bounded pool of named workers executing submitted
// tasks. Each task receives the identity of the worker running it, so
// execution context can be recorded explicitly rather than inferred.
type workerPool struct {
	name   string
	tasks  chan func(worker string)
	wg     sync.WaitGroup
	logger *zap.Logger

	closeOnce sync.Once
}

// newWorkerPool starts size workers named "<name>-worker-<i>". The task
// queue is sized to backlog so a single-goroutine scheduler can submit
// every planned task without blocking.
func newWorkerPool(name string, size, backlog int, logger *zap.Logger) *workerPool {
	p := &workerPool{
		name:   name,
		tasks:  make(chan func(worker string), backlog),
		logger: logger,
	}
	for i := 1; i <= size; i++ {
		worker := fmt.Sprintf("%s-worker-%d", name, i)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task(worker)
			}
		}()
	}
	return p
}

// submit enqueues a task. It reports false once the pool has been shut
// down; a full backlog blocks until a worker drains it.
func (p *workerPool) submit(task func(worker string)) (ok bool) {
	defer func() {
		if recover() != nil {
			// Send on closed channel: pool already shut down.
			ok = false
		}
	}()
	p.tasks <- task
	return true
}

// shutdown stops accepting tasks and waits up to grace for in-flight
// ones to quiesce. When the grace period expires the pool is abandoned
// (workers finish on their own) and an error is returned; that is the
// forced escalation, since a goroutine mid-call cannot be killed.
func (p *workerPool) shutdown(grace time.Duration) error {
	p.closeOnce.Do(func() { close(p.tasks) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		p.logger.Error("worker pool did not quiesce within grace period, abandoning",
			zap.String("pool", p.name),
			zap.Duration("grace", grace))
		return fmt.Errorf("pool %s: workers still busy after %v", p.name, grace)
	}
}
