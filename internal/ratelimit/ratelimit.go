// Package ratelimit provides per-provider token-bucket admission control
// for outbound API calls. Each provider gets a bucket sized to its published
// quota; calls debit a weighted cost in quota units.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WouldBlockError is returned by Acquire when no token is available.
// RetryAfter is how long the caller would have to wait for the debit to
// succeed.
type WouldBlockError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *WouldBlockError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Provider, e.RetryAfter)
}

// Quota describes a provider's published limit: Capacity units replenished
// over Window. A typical request costs 1 unit; weighted endpoints may cost
// more (e.g. a YouTube search costs 100 units of the 10000/day budget).
type Quota struct {
	Capacity int
	Window   time.Duration
}

// Registry holds one token bucket per provider. Safe for concurrent use;
// it is shared process-wide and injected into each provider client.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*rate.Limiter)}
}

// Register installs a bucket for provider. The bucket starts full and
// refills continuously at capacity/window; accumulated tokens are capped at
// capacity. Re-registering replaces the bucket.
func (r *Registry) Register(provider string, q Quota) {
	refill := rate.Limit(float64(q.Capacity) / q.Window.Seconds())
	r.mu.Lock()
	r.limiters[provider] = rate.NewLimiter(refill, q.Capacity)
	r.mu.Unlock()
}

func (r *Registry) limiter(provider string) (*rate.Limiter, error) {
	r.mu.RLock()
	lim, ok := r.limiters[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no rate limit registered for provider %q", provider)
	}
	return lim, nil
}

// Acquire debits cost units from provider's bucket without blocking.
// It returns nil when admitted, or a *WouldBlockError carrying the wait
// duration when the bucket has too few tokens.
func (r *Registry) Acquire(provider string, cost int) error {
	lim, err := r.limiter(provider)
	if err != nil {
		return err
	}
	res := lim.ReserveN(time.Now(), cost)
	if !res.OK() {
		return &WouldBlockError{Provider: provider, RetryAfter: -1}
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return &WouldBlockError{Provider: provider, RetryAfter: delay}
	}
	return nil
}

// Wait debits cost units from provider's bucket, blocking until tokens are
// available or ctx is done.
func (r *Registry) Wait(ctx context.Context, provider string, cost int) error {
	lim, err := r.limiter(provider)
	if err != nil {
		return err
	}
	return lim.WaitN(ctx, cost)
}

// Tokens returns the number of tokens currently available for provider,
// for observability. Returns 0 for unknown providers.
func (r *Registry) Tokens(provider string) float64 {
	lim, err := r.limiter(provider)
	if err != nil {
		return 0
	}
	return lim.Tokens()
}
