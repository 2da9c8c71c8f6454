// Package idempotency guards against a client submitting the same checkout
// twice. Keys live in Redis for a fixed window.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL is how long a used key blocks a repeat submission.
const DefaultTTL = 24 * time.Hour

// ErrDuplicate is returned when the key was already used inside the window.
var ErrDuplicate = errors.New("idempotency key already used")

// Guard claims and releases keys.
type Guard interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// RedisGuard stores claimed keys in Redis.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

// Acquire claims key atomically. A second claim within the TTL fails with
// ErrDuplicate.
func (g *RedisGuard) Acquire(ctx context.Context, key string) error {
	ok, err := g.rdb.SetNX(ctx, redisKey(key), "exists", g.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release frees key so a failed attempt can be retried.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Noop accepts every key. Used when Redis is not configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) error { return nil }
func (Noop) Release(context.Context, string) error { return nil }
