package utils

import (
	"math/rand"
	"time"
)

// retryStatusCodes are the transient/anti-bot HTTP statuses worth resending.
var retryStatusCodes = map[int]struct{}{
	403: {},
	408: {},
	429: {},
	500: {},
	502: {},
	503: {},
	504: {},
}

// Decision is the outcome of a retry check: either resend after Delay, or
// accept the response as final.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy decides, per HTTP-level outcome, whether a request should be
// resent, with exponential backoff and jitter bounded by MaxAttempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      time.Duration
}

// Decide returns the retry decision for the given status code on the given
// retry attempt (1-based). Statuses outside the trigger set, and attempts
// beyond the ceiling, surface the response as final.
func (p *RetryPolicy) Decide(status, attempt int) Decision {
	if _, ok := retryStatusCodes[status]; !ok {
		return Decision{}
	}
	if attempt > p.MaxAttempts {
		return Decision{}
	}

	backoff := p.BaseBackoff << uint(attempt-1)
	if backoff > p.MaxBackoff || backoff <= 0 {
		backoff = p.MaxBackoff
	}

	var jitter time.Duration
	if p.Jitter > 0 {
		jitter = time.Duration(rand.Int63n(int64(p.Jitter)))
	}

	return Decision{Retry: true, Delay: backoff + jitter}
}
