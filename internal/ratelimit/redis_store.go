package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore backs fixed-window counters with Redis INCR/EXPIRE so multiple
// gateway instances can share one quota. The window is anchored at the
// first increment (the key's TTL), matching the in-memory store's
// first-hit-aligned windows.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a counter store on an existing Redis client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Incr implements CounterStore.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	redisKey := s.key(key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// First hit of a fresh window owns the expiry.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set counter expiry: %w", err)
		}
	}

	return int(count), nil
}

// Peek implements CounterStore.
func (s *RedisStore) Peek(ctx context.Context, key string, _ time.Duration) (int, error) {
	count, err := s.client.Get(ctx, s.key(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return count, nil
}

// Health pings the backing Redis instance.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
