package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an entry survives without being rewritten.
// Zero keeps entries forever, which is what the link cache wants.
const DefaultTTL time.Duration = 0

// Store implements storage.Store on top of a Redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
	}
}

// Get reads all keys with a single MGET. Missing keys are absent from the map.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = Key(k)
	}

	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	for i, v := range values {
		switch val := v.(type) {
		case nil:
			// missing
		case string:
			out[keys[i]] = []byte(val)
		case []byte:
			out[keys[i]] = val
		default:
			return nil, fmt.Errorf("unexpected value type %T for key %s", v, keys[i])
		}
	}
	return out, nil
}

// Set writes every value in one pipeline.
func (s *Store) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for k, v := range values {
		pipe.Set(ctx, Key(k), v, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set keys: %w", err)
	}
	return nil
}

// Remove deletes the keys. Deleting a missing key is not an error.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = Key(k)
	}

	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to remove keys: %w", err)
	}
	return nil
}

// Ping checks the connection, used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
