package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"movie-recommender/internal/ratelimit"
)

const breakerConsecutiveFailures = 5

// Transport issues GET requests for one provider with rate limiting,
// circuit breaking and retries applied in that order. Clients build URLs;
// Transport owns everything between the URL and the decoded payload.
type Transport struct {
	provider string
	http     *http.Client
	limits   *ratelimit.Registry
	retry    RetryPolicy
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// NewTransport creates a Transport for provider. The rate limiter registry
// is shared process-wide; the breaker and retry policy are per provider.
func NewTransport(provider string, limits *ratelimit.Registry, retry RetryPolicy, timeout time.Duration) *Transport {
	settings := gobreaker.Settings{
		Name:    provider,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("provider circuit breaker state change",
				"provider", name, "from", from.String(), "to", to.String())
		},
	}
	return &Transport{
		provider: provider,
		http:     &http.Client{Timeout: timeout},
		limits:   limits,
		retry:    retry,
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// GetJSON fetches url and decodes the JSON response into out. cost is the
// quota-unit weight of the call (1 for most endpoints).
func (t *Transport) GetJSON(ctx context.Context, url string, cost int, out any) error {
	if err := t.limits.Acquire(t.provider, cost); err != nil {
		var wb *ratelimit.WouldBlockError
		if errors.As(err, &wb) {
			return &QuotaError{Provider: t.provider, RetryAfter: wb.RetryAfter}
		}
		return err
	}

	var body []byte
	err := t.retry.Do(ctx, func() error {
		b, err := t.breaker.Execute(func() ([]byte, error) {
			return t.fetch(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%s: circuit open: %w", t.provider, err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedError{Provider: t.provider, Err: err}
	}
	return nil
}

// fetch performs a single HTTP GET and classifies failures per the error
// taxonomy.
func (t *Transport) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", t.provider, err)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		// Context cancellation is the caller's deadline, not a provider
		// fault; do not count it against the breaker as retryable.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Provider: t.provider, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransientError{Provider: t.provider, Err: err}
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", t.provider, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &QuotaError{Provider: t.provider, RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(resp.Body)
		return nil, &TransientError{
			Provider: t.provider,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", string(body)),
		}
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: unexpected status %d: %s", t.provider, resp.StatusCode, string(body))
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 10 * time.Second
}
