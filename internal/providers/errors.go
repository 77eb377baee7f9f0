// Package providers contains the shared plumbing for external API clients:
// a typed error taxonomy, an explicit retry policy and an HTTP transport that
// layers rate limiting, circuit breaking and retries under each client.
package providers

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the provider has no data for the request. Never
// retried; callers fall back to other sources.
var ErrNotFound = errors.New("content not found")

// TransientError wraps a failure worth retrying: timeouts, connection
// resets and 5xx responses.
type TransientError struct {
	Provider string
	Status   int // 0 when the failure was not an HTTP response
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transient upstream failure (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transient upstream failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// QuotaError indicates the provider's quota is exhausted, either locally
// (token bucket empty) or upstream (HTTP 429). Not retried immediately;
// callers degrade to cached or fallback data.
type QuotaError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: quota exceeded, retry after %s", e.Provider, e.RetryAfter)
}

// MalformedError indicates the provider answered with a payload we cannot
// parse. Not retried; surfaces immediately.
type MalformedError struct {
	Provider string
	Err      error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// IsRetryable reports whether err qualifies for another attempt under the
// retry policy.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
