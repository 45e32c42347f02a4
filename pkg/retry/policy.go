package retry

import (
	"fmt"
	"net/http"
	"time"

	errs "ksscraper/pkg/errors"
)

// Verdict is the outcome class of one fetch attempt
type Verdict int

const (
	Succeed Verdict = iota
	Retry
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Succeed:
		return "succeed"
	case Retry:
		return "retry"
	default:
		return "fail"
	}
}

// Attempt describes what one request attempt observed
type Attempt struct {
	// Status is the HTTP status, 0 when the transport failed
	Status int
	// Err is a transport-level failure
	Err error
	// Malformed is set when a 200 body did not decode as expected
	Malformed bool
}

// Decision is what the fetch loop should do next. Err is set on Fail.
type Decision struct {
	Verdict Verdict
	Delay   time.Duration
	Err     error
}

// StatusPolicy maps attempt outcomes to decisions
type StatusPolicy struct {
	// BlockedStep is multiplied by (attempt+1) after a 403
	BlockedStep time.Duration
	// ServerBase is doubled per attempt after 5xx or transport errors
	ServerBase time.Duration
	// MalformedDelay is waited after an undecodable 200
	MalformedDelay time.Duration
}

// DefaultStatusPolicy returns the production delays
func DefaultStatusPolicy() StatusPolicy {
	return StatusPolicy{
		BlockedStep:    15 * time.Second,
		ServerBase:     1 * time.Second,
		MalformedDelay: 5 * time.Second,
	}
}

// Decide classifies attempt (0-based) out of maxAttempts. It never asks
// for a wait after the final attempt: a retryable outcome there becomes a
// blocked failure carrying the last status.
func (p StatusPolicy) Decide(attempt, maxAttempts int, a Attempt) Decision {
	last := attempt >= maxAttempts-1

	var d Decision
	switch {
	case a.Err != nil:
		if last {
			return Decision{
				Verdict: Fail,
				Err:     errs.Wrap(errs.ErrorTypeNetwork, 0, "request failed", a.Err),
			}
		}
		d = Decision{Verdict: Retry, Delay: p.ServerBase << uint(attempt)}
	case a.Status == http.StatusOK && !a.Malformed:
		return Decision{Verdict: Succeed}
	case a.Status == http.StatusOK:
		d = Decision{Verdict: Retry, Delay: p.MalformedDelay}
	case a.Status == http.StatusForbidden:
		d = Decision{Verdict: Retry, Delay: p.BlockedStep * time.Duration(attempt+1)}
	case a.Status >= http.StatusInternalServerError:
		d = Decision{Verdict: Retry, Delay: p.ServerBase << uint(attempt)}
	default:
		return Decision{
			Verdict: Fail,
			Err:     errs.New(errs.ErrorTypeClient, a.Status, fmt.Sprintf("unexpected status %d", a.Status)),
		}
	}

	if last {
		return Decision{
			Verdict: Fail,
			Err:     errs.New(errs.ErrorTypeBlocked, a.Status, fmt.Sprintf("max retries exceeded after %d attempts", maxAttempts)),
		}
	}
	return d
}
