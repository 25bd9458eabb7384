package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fallbackTTL bounds entries revoked without a known expiry.
const fallbackTTL = 30 * 24 * time.Hour

// RedisStore keeps denylist entries as Redis keys whose TTL equals the token's
// remaining lifetime.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store keyed under prefix (default "revoked").
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = "revoked"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + Digest(token)
}

// Revoke stores the digest until expiresAt. A token that has already expired needs no
// entry and is skipped.
func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}

	ttl, live := s.ttl(expiresAt)
	if !live {
		return nil
	}

	if err := s.redis.Set(context.WithoutCancel(ctx), s.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// Consume uses SET NX so exactly one caller wins. An already expired token is never
// consumed.
func (s *RedisStore) Consume(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	ttl, live := s.ttl(expiresAt)
	if !live {
		return false, nil
	}

	ok, err := s.redis.SetNX(context.WithoutCancel(ctx), s.key(token), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return ok, nil
}

func (s *RedisStore) ttl(expiresAt time.Time) (time.Duration, bool) {
	if expiresAt.IsZero() {
		return fallbackTTL, true
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return 0, false
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl, true
}

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return n > 0, nil
}

// Clear removes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}
