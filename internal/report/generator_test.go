package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/loadtest"
)

func record(ordinal int, status loadtest.Status, reason string) loadtest.ExecutionRecord {
	return loadtest.ExecutionRecord{
		Ordinal:         ordinal,
		Status:          status,
		Executor:        "load-worker-1",
		DurationMs:      int64(10 * ordinal),
		RelativeStartMs: int64(10 * (ordinal - 1)),
		FailureReason:   reason,
	}
}

func buildRecords(total int, failedOrdinals map[int]string) []loadtest.ExecutionRecord {
	records := make([]loadtest.ExecutionRecord, 0, total)
	for i := 1; i <= total; i++ {
		if reason, ok := failedOrdinals[i]; ok {
			records = append(records, record(i, loadtest.StatusFailed, reason))
		} else {
			records = append(records, record(i, loadtest.StatusSuccess, ""))
		}
	}
	return records
}

func TestGenerate_CleanCapacityCutoff(t *testing.T) {
	failed := map[int]string{}
	for i := 6; i <= 10; i++ {
		failed[i] = "Bulkhead is full and does not permit further calls"
	}
	records := buildRecords(10, failed)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 10, 2*time.Second, records, loadtest.FixedCapacity(5, time.Second))

	assert.Equal(t, 5, rep.Succeeded)
	assert.Equal(t, 5, rep.Failed)
	assert.Equal(t, rep.Succeeded+rep.Failed, rep.TotalRequests)
	assert.Len(t, rep.Executions, rep.TotalRequests)
	assert.Contains(t, rep.Diagnosis, "requests 6-10 were rejected")
	assert.Contains(t, rep.Diagnosis, "capacity of 5")
}

func TestGenerate_ScatteredFailures(t *testing.T) {
	records := buildRecords(10, map[int]string{
		2: "Bulkhead is full",
		7: "Bulkhead is full",
		9: "Bulkhead is full",
	})

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 10, 2*time.Second, records, loadtest.FixedCapacity(5, time.Second))

	assert.Contains(t, rep.Diagnosis, "[2, 7, 9]")
	assert.Contains(t, rep.Diagnosis, "race condition or timing variance")
}

func TestGenerate_AllSucceeded(t *testing.T) {
	records := buildRecords(9, nil)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("thread-pool", 9, time.Second, records, loadtest.ElasticCapacity(2, 4, 5, time.Second))

	assert.Equal(t, 9, rep.Succeeded)
	assert.Zero(t, rep.Failed)
	assert.Contains(t, rep.Diagnosis, "all 9 requests succeeded")
	assert.Contains(t, rep.Diagnosis, "9 slots", "elastic capacity is maxSize + queueCapacity")
}

func TestGenerate_FullyOverwhelmed(t *testing.T) {
	failed := map[int]string{}
	for i := 1; i <= 4; i++ {
		failed[i] = "connection refused"
	}
	records := buildRecords(4, failed)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 4, time.Second, records, loadtest.FixedCapacity(3, time.Second))

	assert.Contains(t, rep.Diagnosis, "all 4 requests failed")
	assert.Contains(t, rep.Diagnosis, "completely overwhelmed")
}

func TestGenerate_ElasticCutoffUsesPoolPlusQueue(t *testing.T) {
	failed := map[int]string{}
	for i := 10; i <= 15; i++ {
		failed[i] = "Task rejected: thread pool and queue are full"
	}
	records := buildRecords(15, failed)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("thread-pool", 15, 3*time.Second, records, loadtest.ElasticCapacity(2, 4, 5, time.Second))

	assert.Contains(t, rep.Diagnosis, "requests 10-15 were rejected")
	for _, exec := range rep.Executions {
		if exec.Status == loadtest.StatusFailed {
			assert.Equal(t, string(CategoryQueueRejected), exec.FailureCategory)
		}
	}
}

func TestGenerate_PartialRecordSet(t *testing.T) {
	// 3 of 5 requested calls completed within the wait budget.
	records := buildRecords(3, nil)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 5, time.Second, records, loadtest.FixedCapacity(3, time.Second))

	assert.Equal(t, 5, rep.Requested)
	assert.Equal(t, 3, rep.TotalRequests, "shortfall must be visible, not fabricated")
	assert.Equal(t, rep.Succeeded+rep.Failed, rep.TotalRequests)
}

func TestGenerate_LatencyStats(t *testing.T) {
	records := buildRecords(10, nil)

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 10, time.Second, records, loadtest.FixedCapacity(10, time.Second))

	// Durations are 10,20,...,100ms.
	assert.InDelta(t, 55, rep.Latency.MeanMs, 2)
	assert.GreaterOrEqual(t, rep.Latency.MaxMs, int64(99))
	assert.GreaterOrEqual(t, rep.Latency.P95Ms, rep.Latency.P50Ms)
}

func TestGenerate_ReportIsSerializable(t *testing.T) {
	records := buildRecords(4, map[int]string{4: "Bulkhead is full"})

	gen := NewGenerator(zap.NewNop())
	rep := gen.Generate("semaphore", 4, time.Second, records, loadtest.FixedCapacity(3, 2*time.Second))

	data, err := json.Marshal(rep)
	require.NoError(t, err)

	var decoded ExecutionReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.Diagnosis, decoded.Diagnosis)
	assert.Equal(t, rep.Capacity.Limit, decoded.Capacity.Limit)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		reason string
		want   FailureCategory
	}{
		{"Bulkhead 'payments' is full and does not permit further calls", CategoryCapacityFull},
		{"wait timeout expired, no slot available", CategoryWaitTimeout},
		{"Task rejected: thread pool and queue are full", CategoryQueueRejected},
		{"503 Service Unavailable", CategoryDownstreamUnavailable},
		{"Service temporarily unavailable", CategoryDownstreamUnavailable},
		{"connection reset by peer", CategoryUncategorized},
	}
	for _, tc := range cases {
		if got := Classify(tc.reason); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.reason, got, tc.want)
		}
	}
}
