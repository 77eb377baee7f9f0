// Package cache provides a TTL-bounded in-process cache with single-flight
// de-duplication of concurrent misses. It fronts every provider call so a
// cache hit costs zero network requests and N racing misses on one key cost
// exactly one upstream fetch.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a value on cache miss.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	expiresAt time.Time
}

// Manager is a concurrency-safe TTL cache. Expired entries are purged lazily
// on access.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates an empty cache Manager.
func NewManager() *Manager {
	return &Manager{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry.
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (m *Manager) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes key from the cache.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// GetOrFetch returns the cached value for key, or runs fetch to load it.
// Concurrent callers missing on the same key share a single fetch; all of
// them receive the first caller's result or error. Errors are never cached.
func (m *Manager) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Double-check: a concurrent caller may have populated the
		// entry between our miss and acquiring the flight.
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		m.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Len returns the number of entries currently held, including any not yet
// lazily purged.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
