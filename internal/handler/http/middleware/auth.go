package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
	ContextClaims   = "claims"
)

// AccessTokenVerifier validates a bearer access token. AuthService
// satisfies it, checking both the signature and the logout blacklist.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*security.Claims, error)
}

// AuthMiddleware authenticates requests via the Authorization header and
// stores the verified claims in the request context.
func AuthMiddleware(verifier AccessTokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
				"code":  "unauthorized",
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format, expected 'Bearer {token}'",
				"code":  "unauthorized",
			})
			return
		}

		claims, err := verifier.VerifyAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			errMsg := "Invalid token"
			errCode := "unauthorized"
			if errors.Is(err, domainErrors.ErrExpiredToken) {
				errMsg = "Token expired"
				errCode = "token_expired"
			} else if errors.Is(err, domainErrors.ErrRevokedToken) {
				errMsg = "Token revoked"
				errCode = "token_revoked"
			}

			logger.Warn("Token validation failed",
				zap.String("error_code", errCode),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": errMsg,
				"code":  errCode,
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles.
func RequireRoles(logger *zap.Logger, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if _, ok := allowed[role]; !ok {
			logger.Warn("Role check failed",
				zap.String("role", role),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Access denied",
				"code":  "forbidden",
			})
			return
		}
		c.Next()
	}
}

// UserID extracts the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}
