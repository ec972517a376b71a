package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
)

// RateLimiter counts a hit for key against rule and reports whether the
// caller is still within its budget.
type RateLimiter interface {
	Allow(ctx context.Context, key string, rule config.RateLimitRule) (bool, error)
}

// RateLimitMiddleware applies rule to the route, keyed by client IP. The
// scope keeps endpoints from sharing a counter. Limiter failures log and
// let the request through; auth availability does not hinge on Redis.
func RateLimitMiddleware(limiter RateLimiter, scope string, rule config.RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !rule.Enabled {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			logger.Error("Rate limiter failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}
		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", rule.Limit),
				zap.Duration("window", rule.Window),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
