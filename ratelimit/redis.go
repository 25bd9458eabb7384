package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counters as Redis integers. INCR and PTTL run in one MULTI so the
// count and the window it belongs to are read together.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store keyed under prefix (default "rl").
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Increment(ctx context.Context, key string, size time.Duration, now time.Time) (int64, time.Time, error) {
	ctx = context.WithoutCancel(ctx)
	k := s.key(key)

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := incr.Val()
	ttl := pttl.Val()

	// Fixed-window semantics: the expiry is set on the first hit only. A key left
	// without a TTL (-1) is repaired the same way.
	if count == 1 || ttl < 0 {
		if err := s.redis.PExpire(ctx, k, size).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ttl = size
	}

	return count, now.Add(ttl), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear removes every counter under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
