// Package ratelimit provides fixed-window token bucket implementations of the
// RateLimiter port, one in-process and one backed by a shared Redis store.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"fanpulse/config"
	"fanpulse/internal/domain/service"
)

// bucket tracks one client's consumption inside the current window.
type bucket struct {
	mu       sync.Mutex
	count    int64     // Tokens consumed in the current window.
	windowAt time.Time // Start of the current window.
}

// bucketLimiter is an in-process fixed-window limiter. Suitable for a single
// instance; multiple instances each count independently, so shared deployments
// should use the Redis store instead.
type bucketLimiter struct {
	capacity int64
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewBucketLimiter builds an in-memory limiter from configuration.
func NewBucketLimiter(cfg *config.RateLimitConfig) service.RateLimiter {
	return &bucketLimiter{
		capacity: cfg.RequestsPerWindow,
		window:   cfg.Window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow consumes one token from the key's bucket, creating it on first sight.
func (l *bucketLimiter) Allow(_ context.Context, key string) (*service.RateLimitDecision, error) {
	b := l.getOrCreate(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	if now.Sub(b.windowAt) >= l.window {
		// Window elapsed: the bucket refills and a new window starts.
		b.count = 0
		b.windowAt = now
	}

	if b.count >= l.capacity {
		return &service.RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: b.windowAt.Add(l.window).Sub(now),
		}, nil
	}

	b.count++

	return &service.RateLimitDecision{
		Allowed:   true,
		Remaining: l.capacity - b.count,
	}, nil
}

func (l *bucketLimiter) getOrCreate(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{windowAt: l.now()}
		l.buckets[key] = b
	}

	return b
}
