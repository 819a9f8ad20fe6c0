// Package faultinject provides a deterministic, scenario-driven fault
// injector for exercising resilience components under load.
//
// A scenario is a hyphen-delimited sequence of outcome tokens, e.g.
// "500-500-ok" or "slow:3000-ok". Successive calls under the same key
// walk the sequence one token per call, so a single scenario string
// fully describes the behavior a caller will observe across retries.
package faultinject

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OutcomeKind identifies what a single scenario token does to a call.
type OutcomeKind int

const (
	// OutcomeSuccess returns immediately with a success payload.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailure returns a categorized failure immediately.
	OutcomeFailure

	// OutcomeDelay blocks the call for a fixed duration, then succeeds.
	// Used to trip slow-call detection without failing the call.
	OutcomeDelay

	// OutcomeTimeout blocks past any reasonable caller timeout, then fails.
	OutcomeTimeout
)

// DefaultTimeoutHold is how long a "timeout" token blocks before failing.
// It must exceed the timeout of any caller under test.
const DefaultTimeoutHold = 10 * time.Second

// Outcome is one parsed scenario token. Outcomes are value types and
// immutable once parsed.
type Outcome struct {
	Kind  OutcomeKind
	Code  string        // failure code ("429", "500", ...), empty for success
	Delay time.Duration // block duration for OutcomeDelay / OutcomeTimeout
}

// failureMessages maps failure codes to the reason text carried by the
// resulting error. Matching is exact; unknown codes are a parse error.
var failureMessages = map[string]string{
	"400": "Invalid request data",
	"408": "Request timed out waiting for downstream",
	"404": "Resource not found",
	"429": "Too many requests",
	"500": "Internal server error",
	"503": "Service temporarily unavailable",
}

// FaultError is the categorized failure signal produced by a failure
// outcome. Code is the scenario token that produced it.
type FaultError struct {
	Code    string
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("fault %s: %s", e.Code, e.Message)
}

// Err returns the categorized error for a failure outcome, or nil for
// any other kind.
func (o Outcome) Err() error {
	if o.Kind != OutcomeFailure && o.Kind != OutcomeTimeout {
		return nil
	}
	return &FaultError{Code: o.Code, Message: failureMessages[o.Code]}
}

// String returns the token form of the outcome.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "ok"
	case OutcomeFailure:
		return o.Code
	case OutcomeDelay:
		return fmt.Sprintf("slow:%d", o.Delay.Milliseconds())
	case OutcomeTimeout:
		return "timeout"
	}
	return "unknown"
}

// Sequence is an immutable, ordered list of outcomes parsed from a
// scenario descriptor.
type Sequence struct {
	raw      string
	outcomes []Outcome
}

// ParseSequence parses a hyphen-delimited scenario descriptor.
//
// Vocabulary:
//   - "ok"          immediate success
//   - "400", "404", "429", "500", "503"  categorized failure
//   - "slow:<ms>"   block for <ms> milliseconds, then succeed
//   - "timeout"     block for DefaultTimeoutHold, then fail with code 408
//
// The descriptor must be non-empty and every token must be recognized.
func ParseSequence(descriptor string) (Sequence, error) {
	if strings.TrimSpace(descriptor) == "" {
		return Sequence{}, fmt.Errorf("empty scenario descriptor")
	}

	tokens := strings.Split(descriptor, "-")
	outcomes := make([]Outcome, 0, len(tokens))

	for _, token := range tokens {
		outcome, err := parseToken(token)
		if err != nil {
			return Sequence{}, fmt.Errorf("scenario %q: %w", descriptor, err)
		}
		outcomes = append(outcomes, outcome)
	}

	return Sequence{raw: descriptor, outcomes: outcomes}, nil
}

func parseToken(token string) (Outcome, error) {
	switch {
	case token == "ok":
		return Outcome{Kind: OutcomeSuccess}, nil

	case token == "timeout":
		return Outcome{Kind: OutcomeTimeout, Code: "408", Delay: DefaultTimeoutHold}, nil

	case strings.HasPrefix(token, "slow:"):
		ms, err := strconv.Atoi(strings.TrimPrefix(token, "slow:"))
		if err != nil || ms <= 0 {
			return Outcome{}, fmt.Errorf("invalid slow token %q: duration must be a positive millisecond count", token)
		}
		return Outcome{Kind: OutcomeDelay, Delay: time.Duration(ms) * time.Millisecond}, nil

	default:
		if _, ok := failureMessages[token]; ok {
			return Outcome{Kind: OutcomeFailure, Code: token}, nil
		}
		return Outcome{}, fmt.Errorf("unknown scenario token %q", token)
	}
}

// Len returns the number of outcomes in the sequence.
func (s Sequence) Len() int {
	return len(s.outcomes)
}

// At returns the outcome at index i. It panics if i is out of range,
// matching slice semantics; callers hold i < Len() by construction.
func (s Sequence) At(i int) Outcome {
	return s.outcomes[i]
}

// String returns the original descriptor the sequence was parsed from.
func (s Sequence) String() string {
	return s.raw
}
