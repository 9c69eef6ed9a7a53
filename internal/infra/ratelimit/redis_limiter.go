package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"fanpulse/config"
	"fanpulse/internal/domain/service"
	"fanpulse/internal/errors"
)

// keyPrefix namespaces limiter counters in the shared store.
const keyPrefix = "ratelimit:auth:"

// redisLimiter is a fixed-window limiter on a shared Redis store, so every
// instance of the service draws from the same per-client budget.
type redisLimiter struct {
	client   redis.UniversalClient
	capacity int64
	window   time.Duration
}

// NewRedisLimiter builds a limiter on the given Redis client.
func NewRedisLimiter(client redis.UniversalClient, cfg *config.RateLimitConfig) service.RateLimiter {
	return &redisLimiter{
		client:   client,
		capacity: cfg.RequestsPerWindow,
		window:   cfg.Window,
	}
}

// Allow consumes one token via INCR. The first hit in a window sets the TTL,
// which doubles as the window boundary.
func (l *redisLimiter) Allow(ctx context.Context, key string) (*service.RateLimitDecision, error) {
	counterKey := keyPrefix + key

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "increment rate limit counter")
	}

	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, l.window).Err(); err != nil {
			return nil, errors.Wrap(err, "set rate limit window")
		}
	}

	if count > l.capacity {
		ttl, err := l.client.TTL(ctx, counterKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}

		return &service.RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: ttl,
		}, nil
	}

	return &service.RateLimitDecision{
		Allowed:   true,
		Remaining: l.capacity - count,
	}, nil
}
