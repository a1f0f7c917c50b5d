package resolver

import (
	"time"

	"github.com/cenkalti/backoff/v3"
)

// linearBackOff waits step, 2*step, 3*step, ... between attempts
type linearBackOff struct {
	step    time.Duration
	attempt int64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// backOff builds the wait policy for one candidate: at most Retries
// attempts, stopped early when ctx is done. WithMaxRetries treats 0 as
// unlimited, so a single-attempt budget stops outright.
func (c Candidate) backOff() backoff.BackOff {
	if c.Retries <= 1 {
		return &backoff.StopBackOff{}
	}
	var policy backoff.BackOff
	switch c.Policy {
	case PolicyLinear:
		policy = &linearBackOff{step: c.Delay}
	default:
		policy = backoff.NewConstantBackOff(c.Delay)
	}
	return backoff.WithMaxRetries(policy, uint64(c.Retries-1))
}
