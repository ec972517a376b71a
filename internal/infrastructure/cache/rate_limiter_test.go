package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/records-admin-service/internal/config"
)

func newTestRateLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client), mr
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter, _ := newTestRateLimiter(t)
	ctx := context.Background()
	rule := config.RateLimitRule{Enabled: true, Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1", rule)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other callers keep their own budget.
	allowed, err = limiter.Allow(ctx, "10.0.0.2", rule)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	limiter, mr := newTestRateLimiter(t)
	ctx := context.Background()
	rule := config.RateLimitRule{Enabled: true, Limit: 1, Window: time.Second}

	allowed, err := limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Second)

	allowed, err = limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_DisabledRuleAlwaysAllows(t *testing.T) {
	limiter, _ := newTestRateLimiter(t)
	ctx := context.Background()
	rule := config.RateLimitRule{Enabled: false, Limit: 1, Window: time.Minute}

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1", rule)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter, _ := newTestRateLimiter(t)
	ctx := context.Background()
	rule := config.RateLimitRule{Enabled: true, Limit: 1, Window: time.Minute}

	_, err := limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	allowed, err := limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))

	allowed, err = limiter.Allow(ctx, "10.0.0.1", rule)
	require.NoError(t, err)
	assert.True(t, allowed)
}
