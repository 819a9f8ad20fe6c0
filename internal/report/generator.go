package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/loadtest"
)

// ExecutionReport is the serializable result of one load-test run,
// judged against the declared capacity of the operation under test.
//
// TotalRequests always equals Succeeded + Failed and len(Executions);
// a run that exhausted its wait budget shows up as TotalRequests <
// Requested, never as a silently truncated list.
type ExecutionReport struct {
	Kind          string                  `json:"kind"`
	Capacity      loadtest.CapacityConfig `json:"capacity"`
	Requested     int                     `json:"requested"`
	TotalRequests int                     `json:"totalRequests"`
	Succeeded     int                     `json:"succeeded"`
	Failed        int                     `json:"failed"`

	TotalDurationMs int64 `json:"totalDurationMs"`

	// Executions is ordered by ordinal, failures carrying their
	// classified category.
	Executions []loadtest.ExecutionRecord `json:"executions"`

	Latency LatencyStats `json:"latency"`

	Diagnosis string `json:"diagnosis"`
}

// LatencyStats summarizes per-call durations over the whole run.
type LatencyStats struct {
	MeanMs float64 `json:"meanMs"`
	P50Ms  int64   `json:"p50Ms"`
	P95Ms  int64   `json:"p95Ms"`
	P99Ms  int64   `json:"p99Ms"`
	MaxMs  int64   `json:"maxMs"`
}

// Generator turns record sets into execution reports.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a report generator. A nil logger disables
// logging.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate builds the report for one run. requested is the number of
// calls the driver asked for; records holds whatever completed within
// the wait budget. The input slice is not modified.
func (g *Generator) Generate(kind string, requested int, totalDuration time.Duration, records []loadtest.ExecutionRecord, capacity loadtest.CapacityConfig) *ExecutionReport {
	executions := make([]loadtest.ExecutionRecord, len(records))
	copy(executions, records)
	sort.Slice(executions, func(i, j int) bool { return executions[i].Ordinal < executions[j].Ordinal })

	succeeded, failed := 0, 0
	var failedOrdinals []int
	for i := range executions {
		if executions[i].Status == loadtest.StatusSuccess {
			succeeded++
			continue
		}
		failed++
		failedOrdinals = append(failedOrdinals, executions[i].Ordinal)
		executions[i].FailureCategory = string(Classify(executions[i].FailureReason))
	}

	if succeeded+failed < requested {
		g.logger.Warn("report covers fewer requests than submitted",
			zap.String("kind", kind),
			zap.Int("requested", requested),
			zap.Int("recorded", succeeded+failed))
	}

	return &ExecutionReport{
		Kind:            kind,
		Capacity:        capacity,
		Requested:       requested,
		TotalRequests:   succeeded + failed,
		Succeeded:       succeeded,
		Failed:          failed,
		TotalDurationMs: totalDuration.Milliseconds(),
		Executions:      executions,
		Latency:         latencyStats(executions),
		Diagnosis:       diagnose(succeeded, failed, failedOrdinals, capacity),
	}
}

// latencyStats aggregates durations into an HDR histogram and reads the
// interesting quantiles back out.
func latencyStats(executions []loadtest.ExecutionRecord) LatencyStats {
	if len(executions) == 0 {
		return LatencyStats{}
	}

	// 1ms to 1h at 3 significant figures.
	hist := hdrhistogram.New(1, 3600000, 3)
	for _, rec := range executions {
		ms := rec.DurationMs
		if ms < 1 {
			ms = 1
		}
		_ = hist.RecordValue(ms)
	}

	return LatencyStats{
		MeanMs: hist.Mean(),
		P50Ms:  hist.ValueAtQuantile(50),
		P95Ms:  hist.ValueAtQuantile(95),
		P99Ms:  hist.ValueAtQuantile(99),
		MaxMs:  hist.Max(),
	}
}

// diagnose names the failure pattern: clean contiguous cutoff right
// past the declared capacity, or a scattered set suggesting races or
// timing variance.
func diagnose(succeeded, failed int, failedOrdinals []int, capacity loadtest.CapacityConfig) string {
	total := succeeded + failed

	if failed == 0 {
		return fmt.Sprintf("all %d requests succeeded: capacity limit (%d slots) not reached", total, capacity.TotalCapacity())
	}
	if succeeded == 0 {
		return fmt.Sprintf("all %d requests failed: operation completely overwhelmed", total)
	}

	sort.Ints(failedOrdinals)
	totalCapacity := capacity.TotalCapacity()
	expectedFirstRejected := totalCapacity + 1

	contiguous := true
	for i, ordinal := range failedOrdinals {
		if ordinal != expectedFirstRejected+i {
			contiguous = false
			break
		}
	}

	if contiguous {
		return fmt.Sprintf("requests %d-%d were rejected: clean cutoff beyond the capacity of %d",
			expectedFirstRejected, failedOrdinals[len(failedOrdinals)-1], totalCapacity)
	}

	parts := make([]string, len(failedOrdinals))
	for i, ordinal := range failedOrdinals {
		parts[i] = fmt.Sprintf("%d", ordinal)
	}
	return fmt.Sprintf("failed requests [%s]: scattered pattern indicates race condition or timing variance",
		strings.Join(parts, ", "))
}
