package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares windows between processes. The window is the key's TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	key = s.prefix + ":" + key

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incr %s: %w", key, err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, key, length).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("expire %s: %w", key, err)
		}
		return 1, now.Add(length), nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		// Key lost its expiry; restart the window rather than block forever.
		if err := s.client.PExpire(ctx, key, length).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("expire %s: %w", key, err)
		}
		ttl = length
	}

	return int(count), now.Add(ttl), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
