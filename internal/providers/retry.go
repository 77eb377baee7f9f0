package providers

import (
	"context"
	"time"
)

// RetryPolicy is an explicit, inspectable retry contract: how many attempts,
// how the delay grows, and (via IsRetryable) which errors qualify.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries transient failures up to 3 attempts with
// exponential backoff starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Backoff returns the delay before the given retry (attempt is 1-based:
// Backoff(1) is the delay after the first failure). The schedule is strictly
// increasing up to MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn under the policy. Non-retryable errors return immediately;
// retryable ones are reattempted after backoff until attempts run out or
// ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
