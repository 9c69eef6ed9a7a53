package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisLimiter_AllowsUpToCapacity(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, testLimitConfig())
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		decision, err := limiter.Allow(ctx, "203.0.113.7")
		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 4-i, decision.Remaining)
	}

	decision, err := limiter.Allow(ctx, "203.0.113.7")
	assert.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, testLimitConfig())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.Allow(ctx, "203.0.113.7")
		assert.NoError(t, err)
	}

	decision, err := limiter.Allow(ctx, "198.51.100.9")
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(4), decision.Remaining)
}

func TestRedisLimiter_RefillsAfterWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, testLimitConfig())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.Allow(ctx, "203.0.113.7")
		assert.NoError(t, err)
	}

	// Expire the window key.
	mr.FastForward(time.Minute + time.Second)

	decision, err := limiter.Allow(ctx, "203.0.113.7")
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(4), decision.Remaining)
}

func TestRedisLimiter_StoreUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, testLimitConfig())

	mr.Close()

	decision, err := limiter.Allow(context.Background(), "203.0.113.7")
	assert.Error(t, err)
	assert.Nil(t, decision)
}
