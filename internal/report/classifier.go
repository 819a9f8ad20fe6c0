// Package report aggregates load-test execution records into a
// diagnostic report judged against the declared capacity of the
// operation under test.
package report

import "strings"

// FailureCategory buckets a failure reason by rejection signature.
type FailureCategory string

const (
	// CategoryCapacityFull: the operation's concurrent-call limit was
	// reached and it does not permit further calls.
	CategoryCapacityFull FailureCategory = "CAPACITY_FULL"

	// CategoryWaitTimeout: the caller waited for a slot and the wait
	// timeout expired before one freed.
	CategoryWaitTimeout FailureCategory = "WAIT_TIMEOUT"

	// CategoryQueueRejected: the operation's pool and queue were both
	// full at submission time.
	CategoryQueueRejected FailureCategory = "QUEUE_REJECTED"

	// CategoryDownstreamUnavailable: the downstream reported itself
	// unavailable (503-shaped rejection).
	CategoryDownstreamUnavailable FailureCategory = "DOWNSTREAM_UNAVAILABLE"

	// CategoryUncategorized: no known signature matched; the raw
	// reason text is retained on the record.
	CategoryUncategorized FailureCategory = "UNCATEGORIZED"
)

// signature order matters: "pool and queue are full" must classify as
// a queue rejection, not a generic capacity hit, so the more specific
// signatures are checked first.
var signatures = []struct {
	substr   string
	category FailureCategory
}{
	{"rejected", CategoryQueueRejected},
	{"bulkhead", CategoryCapacityFull},
	{"wait timeout", CategoryWaitTimeout},
	{"timeout", CategoryWaitTimeout},
	{"503", CategoryDownstreamUnavailable},
	{"unavailable", CategoryDownstreamUnavailable},
	{"full", CategoryCapacityFull},
}

// Classify matches a raw failure reason against the known rejection
// signatures. Matching is case-insensitive; an unmatched reason falls
// into the uncategorized bucket rather than failing report generation.
func Classify(reason string) FailureCategory {
	lower := strings.ToLower(reason)
	for _, sig := range signatures {
		if strings.Contains(lower, sig.substr) {
			return sig.category
		}
	}
	return CategoryUncategorized
}
