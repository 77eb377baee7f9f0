package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"movie-recommender/internal/models"
)

const profileKeyPrefix = "profile:"

// RedisStore persists profiles as JSON values in Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore backed by the given client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	data, err := s.rdb.Get(ctx, profileKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var p models.UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	return &p, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, p *models.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	if err := s.rdb.Set(ctx, profileKeyPrefix+p.UserID, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// All implements Store by scanning the profile keyspace.
func (s *RedisStore) All(ctx context.Context) ([]*models.UserProfile, error) {
	var out []*models.UserProfile
	iter := s.rdb.Scan(ctx, 0, profileKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var p models.UserProfile
		if json.Unmarshal([]byte(data), &p) == nil {
			out = append(out, &p)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, profileKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
