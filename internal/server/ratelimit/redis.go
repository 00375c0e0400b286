// Package ratelimit throttles abuse-prone requests (password reset,
// verification resends) with fixed windows kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/redis/go-redis/v9"
)

// Limiter admits at most a configured number of hits per key per window.
type Limiter interface {
	// Allow records a hit for key and returns common.ErrRateLimited once the
	// window budget is exhausted.
	Allow(ctx context.Context, key string) error
}

type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

type RedisLimiter struct {
	redis redis.UniversalClient
	cfg   Config
}

func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{redis: client, cfg: cfg}
}

func (l *RedisLimiter) key(k string) string {
	return l.cfg.Prefix + ":" + k
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.key(key)

	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	if count > int64(l.cfg.MaxAttempts) {
		return common.ErrRateLimited
	}
	return nil
}

// Unlimited admits everything. Used when no Redis is configured.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) error { return nil }
