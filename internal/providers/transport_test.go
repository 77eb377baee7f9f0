package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"movie-recommender/internal/ratelimit"
)

func newTestLimits(provider string) *ratelimit.Registry {
	r := ratelimit.NewRegistry()
	r.Register(provider, ratelimit.Quota{Capacity: 1000, Window: time.Hour})
	return r
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Heat"}`))
	}))
	defer srv.Close()

	tr := NewTransport("tmdb", newTestLimits("tmdb"), fastRetry(), time.Second)
	var out struct {
		Title string `json:"title"`
	}
	if err := tr.GetJSON(context.Background(), srv.URL, 1, &out); err != nil {
		t.Fatal(err)
	}
	if out.Title != "Heat" {
		t.Fatalf("got %q", out.Title)
	}
}

func TestTransientFailureRetriedToCap(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewTransport("tmdb", newTestLimits("tmdb"), fastRetry(), time.Second)
	var out any
	err := tr.GetJSON(context.Background(), srv.URL, 1, &out)

	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError after retries, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestTransientFailureRecoversMidRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := NewTransport("omdb", newTestLimits("omdb"), fastRetry(), time.Second)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := tr.GetJSON(context.Background(), srv.URL, 1, &out); err != nil {
		t.Fatal(err)
	}
	if !out.OK {
		t.Fatal("expected recovered payload")
	}
}

func TestNotFoundNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewTransport("tmdb", newTestLimits("tmdb"), fastRetry(), time.Second)
	var out any
	err := tr.GetJSON(context.Background(), srv.URL, 1, &out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("not-found retried: %d attempts", n)
	}
}

func TestMalformedResponseNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{{{not json`))
	}))
	defer srv.Close()

	tr := NewTransport("omdb", newTestLimits("omdb"), fastRetry(), time.Second)
	var out any
	err := tr.GetJSON(context.Background(), srv.URL, 1, &out)

	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("malformed response retried: %d attempts", n)
	}
}

func TestLocalQuotaExhaustionShortCircuits(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	limits := ratelimit.NewRegistry()
	limits.Register("youtube", ratelimit.Quota{Capacity: 100, Window: 24 * time.Hour})

	tr := NewTransport("youtube", limits, fastRetry(), time.Second)
	var out any
	if err := tr.GetJSON(context.Background(), srv.URL, 100, &out); err != nil {
		t.Fatal(err)
	}

	err := tr.GetJSON(context.Background(), srv.URL, 100, &out)
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	// The rejected call must never reach the network.
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("quota-rejected call hit upstream: %d calls", n)
	}
}

func TestUpstream429MapsToQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewTransport("omdb", newTestLimits("omdb"), fastRetry(), time.Second)
	var out any
	err := tr.GetJSON(context.Background(), srv.URL, 1, &out)

	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	if qe.RetryAfter != 42*time.Second {
		t.Fatalf("expected Retry-After 42s, got %s", qe.RetryAfter)
	}
}

func TestBackoffStrictlyIncreasing(t *testing.T) {
	p := DefaultRetryPolicy()
	prev := time.Duration(0)
	for attempt := 1; attempt <= 3; attempt++ {
		d := p.Backoff(attempt)
		if d <= prev {
			t.Fatalf("backoff not increasing at attempt %d: %s <= %s", attempt, d, prev)
		}
		prev = d
	}
}

func TestRetryRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport("tmdb", newTestLimits("tmdb"),
		RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: time.Minute}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	var out any
	err := tr.GetJSON(ctx, srv.URL, 1, &out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
