// Package loadtest drives concurrent calls against an operation under
// test with deterministic, staggered submission, and collects per-call
// execution telemetry.
//
// The harness treats the operation purely as a black box: it may
// succeed, return a categorized rejection, or block. Its declared
// concurrency-limit shape is described by CapacityConfig so reports can
// judge observed failures against expected capacity.
package loadtest

import (
	"sort"
	"sync"
	"time"
)

// Status is the terminal state of one logical call.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// ExecutionRecord describes the outcome of one submitted call. It is
// created exactly once, at completion, and is immutable thereafter.
type ExecutionRecord struct {
	// Ordinal is the 1-based submission position within the run.
	Ordinal int `json:"ordinal"`

	// Status is SUCCESS or FAILED.
	Status Status `json:"status"`

	// Executor identifies the execution context that resolved the
	// call. For pool-isolated operations this is the operation's own
	// internal pool, not the submitting worker.
	Executor string `json:"executor"`

	// Submitter identifies the harness worker that submitted the
	// call. Empty when it is the same context as Executor.
	Submitter string `json:"submitter,omitempty"`

	// DurationMs is wall time from submission to completion.
	DurationMs int64 `json:"durationMs"`

	// RelativeStartMs is the submission time relative to run start.
	RelativeStartMs int64 `json:"relativeStartMs"`

	// FailureReason is the raw error text for failed calls.
	FailureReason string `json:"failureReason,omitempty"`

	// FailureCategory is assigned by report generation, which matches
	// FailureReason against known rejection signatures. Orchestrators
	// leave it empty.
	FailureCategory string `json:"failureCategory,omitempty"`
}

// CapacityKind distinguishes the two concurrency-limit shapes an
// operation under test can declare.
type CapacityKind string

const (
	// CapacityFixed is a hard concurrent-call limit with an optional
	// wait for a slot (semaphore shape).
	CapacityFixed CapacityKind = "FIXED"

	// CapacityElastic is a worker pool that grows from CoreSize to
	// MaxSize and queues up to QueueCapacity submissions beyond that.
	CapacityElastic CapacityKind = "ELASTIC"
)

// CapacityConfig declares the concurrency-limit shape of the operation
// under test. It is an input to report generation, never enforced by
// the harness itself.
type CapacityConfig struct {
	Kind CapacityKind `json:"kind"`

	// Fixed shape.
	Limit int `json:"limit,omitempty"`

	// Elastic shape.
	CoreSize      int `json:"coreSize,omitempty"`
	MaxSize       int `json:"maxSize,omitempty"`
	QueueCapacity int `json:"queueCapacity,omitempty"`

	// MaxWait is how long a rejected-unless-slot-frees call is
	// declared to wait before giving up.
	MaxWait time.Duration `json:"maxWait,omitempty"`
}

// FixedCapacity declares a hard limit of concurrent calls.
func FixedCapacity(limit int, maxWait time.Duration) CapacityConfig {
	return CapacityConfig{Kind: CapacityFixed, Limit: limit, MaxWait: maxWait}
}

// ElasticCapacity declares a core/max pool with a bounded queue.
func ElasticCapacity(coreSize, maxSize, queueCapacity int, maxWait time.Duration) CapacityConfig {
	return CapacityConfig{
		Kind:          CapacityElastic,
		CoreSize:      coreSize,
		MaxSize:       maxSize,
		QueueCapacity: queueCapacity,
		MaxWait:       maxWait,
	}
}

// TotalCapacity is the number of submissions the operation admits
// before the first rejection: the limit for fixed shapes, pool plus
// queue for elastic ones.
func (c CapacityConfig) TotalCapacity() int {
	if c.Kind == CapacityElastic {
		return c.MaxSize + c.QueueCapacity
	}
	return c.Limit
}

// resultSet is a thread-safe, ordinal-keyed collection of records with
// single-assignment semantics per ordinal: the first write wins and
// later writes for the same ordinal are rejected.
type resultSet struct {
	mu      sync.Mutex
	records map[int]ExecutionRecord
}

func newResultSet(capacity int) *resultSet {
	return &resultSet{records: make(map[int]ExecutionRecord, capacity)}
}

// put inserts the record and reports whether it was the first for its
// ordinal.
func (r *resultSet) put(rec ExecutionRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.Ordinal]; exists {
		return false
	}
	r.records[rec.Ordinal] = rec
	return true
}

// sorted snapshots the current records ordered by ordinal.
func (r *resultSet) sorted() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutionRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}
