// Package profile owns user taste profiles: a key-value store contract with
// Redis and in-memory implementations, a Postgres append-only interaction
// log, and the recorder that turns interaction events into preference
// weights.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"movie-recommender/internal/models"
)

// ErrUnavailable indicates the profile store cannot be reached. The
// recommendation engine degrades to cold-start behavior instead of failing.
var ErrUnavailable = errors.New("profile store unavailable")

// ErrNotFound indicates no profile exists for the user.
var ErrNotFound = errors.New("profile not found")

// Store is the key-value profile contract the core depends on.
type Store interface {
	// Get returns the user's profile, ErrNotFound if none exists, or
	// ErrUnavailable when the backing store is unreachable.
	Get(ctx context.Context, userID string) (*models.UserProfile, error)

	// Put stores the profile, replacing any previous version.
	Put(ctx context.Context, p *models.UserProfile) error

	// All returns every stored profile, used as the neighbor candidate
	// pool for collaborative filtering.
	All(ctx context.Context) ([]*models.UserProfile, error)

	// Delete removes a user's profile (explicit user-initiated clear).
	Delete(ctx context.Context, userID string) error
}

// MemoryStore is an in-process Store used in tests and when no Redis is
// configured. Profiles are stored serialized so callers always get their
// own copy, matching the Redis store's semantics. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	s.mu.RLock()
	data, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var p models.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, p *models.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[p.UserID] = data
	s.mu.Unlock()
	return nil
}

// All implements Store.
func (s *MemoryStore) All(ctx context.Context) ([]*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.UserProfile, 0, len(s.profiles))
	for _, data := range s.profiles {
		var p models.UserProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.profiles, userID)
	s.mu.Unlock()
	return nil
}
