package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/classbridge/records-admin-service/internal/config"
)

const rateLimitPrefix = "records:ratelimit:"

// RateLimiter is a fixed-window counter over Redis INCR/EXPIRE, keyed per
// caller. It guards the unauthenticated auth endpoints.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter wraps a Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts a hit against the rule's window and reports whether the
// caller is still under the limit. Disabled or non-positive rules always
// allow.
func (l *RateLimiter) Allow(ctx context.Context, key string, rule config.RateLimitRule) (bool, error) {
	if !rule.Enabled || rule.Limit <= 0 {
		return true, nil
	}

	redisKey := rateLimitPrefix + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, rule.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return incr.Val() <= int64(rule.Limit), nil
}

// Reset clears the counter for a key.
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, rateLimitPrefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset failed: %w", err)
	}
	return nil
}
