package advisor

import (
	"context"
	"errors"
	"net"
)

// Canned replies returned when the model produced no usable text.
const (
	FallbackGeneric = "I'm having trouble connecting right now. Please try again later."
	FallbackTimeout = "My response is taking longer than expected. Please try again."
)

// Outcome classifies how a single completion call ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded" // first candidate carried text
	OutcomeEmpty     Outcome = "empty"     // well-formed reply without usable candidates
	OutcomeTimedOut  Outcome = "timed_out" // transport budget exceeded
	OutcomeFailed    Outcome = "failed"    // auth, bad request, network, anything else
)

// Result is the outcome of one transport call together with its payload.
// Text is set only for OutcomeSucceeded, Err only for OutcomeTimedOut and OutcomeFailed.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// resultOf turns the raw transport return values into a Result.
func resultOf(candidates []string, err error) Result {
	switch {
	case err != nil && isTimeout(err):
		return Result{Outcome: OutcomeTimedOut, Err: err}
	case err != nil:
		return Result{Outcome: OutcomeFailed, Err: err}
	case len(candidates) == 0 || candidates[0] == "":
		return Result{Outcome: OutcomeEmpty}
	default:
		return Result{Outcome: OutcomeSucceeded, Text: candidates[0]}
	}
}

// Reply maps a Result to the text shown to the user. It never returns "".
func (r Result) Reply() string {
	switch r.Outcome {
	case OutcomeSucceeded:
		return r.Text
	case OutcomeTimedOut:
		return FallbackTimeout
	default:
		return FallbackGeneric
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
