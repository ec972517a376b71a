package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/handler/http/middleware"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
	"github.com/classbridge/records-admin-service/internal/service"
)

// AuthHandler handles login, token refresh and logout.
//
// The refresh token travels only in an HTTP-only cookie; a companion
// readable CSRF cookie must be echoed in the X-CSRF-Token header on every
// refresh (double-submit check).
type AuthHandler struct {
	logger      *zap.Logger
	authService *service.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(logger *zap.Logger, authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		logger:      logger.Named("auth_handler"),
		authService: authService,
		cfg:         cfg,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

type userResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	DistrictID *int64 `json:"district_id,omitempty"`
}

func (h *AuthHandler) tokenMetadata(c *gin.Context, deviceID string) service.TokenMetadata {
	meta := service.TokenMetadata{}
	if deviceID != "" {
		meta.DeviceID = &deviceID
	}
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}

// setSessionCookies installs the refresh and CSRF cookies. The CSRF token
// is deliberately readable by scripts; the refresh cookie is not.
func (h *AuthHandler) setSessionCookies(c *gin.Context, refreshToken string, expiresAt time.Time) (string, error) {
	csrfToken, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Auth.RefreshCookieName, refreshToken, maxAge, "/api/v1/auth", "", h.cfg.Auth.SecureCookies, true)
	c.SetCookie(h.cfg.Auth.CSRFCookieName, csrfToken, maxAge, "/", "", h.cfg.Auth.SecureCookies, false)
	return csrfToken, nil
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetCookie(h.cfg.Auth.RefreshCookieName, "", -1, "/api/v1/auth", "", h.cfg.Auth.SecureCookies, true)
	c.SetCookie(h.cfg.Auth.CSRFCookieName, "", -1, "/", "", h.cfg.Auth.SecureCookies, false)
}

// checkCSRF enforces the double-submit rule: the readable CSRF cookie must
// match the X-CSRF-Token header.
func (h *AuthHandler) checkCSRF(c *gin.Context) bool {
	cookie, err := c.Cookie(h.cfg.Auth.CSRFCookieName)
	header := c.GetHeader("X-CSRF-Token")
	if err != nil || cookie == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, h.tokenMetadata(c, req.DeviceID))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			RespondWithError(c, http.StatusUnauthorized, "Invalid credentials", "invalid_credentials", h.logger)
		} else if errors.Is(err, domainErrors.ErrUserInactive) {
			RespondWithError(c, http.StatusForbidden, "Account is inactive", "account_inactive", h.logger)
		} else {
			h.logger.Error("Login failed", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Login failed", "internal_error", h.logger)
		}
		return
	}

	csrfToken, err := h.setSessionCookies(c, result.Pair.RefreshToken, result.Pair.RefreshExpiresAt)
	if err != nil {
		h.logger.Error("Failed to issue CSRF token", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Login failed", "internal_error", h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{
		"access_token":      result.Pair.AccessToken,
		"access_expires_at": result.Pair.AccessExpiresAt,
		"token_type":        result.Pair.TokenType,
		"csrf_token":        csrfToken,
		"user": userResponse{
			ID:         result.User.ID,
			Username:   result.User.Username,
			FullName:   result.User.FullName,
			Role:       result.User.Role,
			DistrictID: result.User.DistrictID,
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh-token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	if !h.checkCSRF(c) {
		RespondWithError(c, http.StatusForbidden, "CSRF token mismatch", "csrf_mismatch", h.logger)
		return
	}

	refreshToken, err := c.Cookie(h.cfg.Auth.RefreshCookieName)
	if err != nil || refreshToken == "" {
		RespondWithError(c, http.StatusUnauthorized, "Missing refresh token", "invalid_refresh_token", h.logger)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), refreshToken, h.tokenMetadata(c, ""))
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidRefreshToken) {
			h.clearSessionCookies(c)
			RespondWithError(c, http.StatusUnauthorized, "Invalid refresh token", "invalid_refresh_token", h.logger)
		} else if errors.Is(err, domainErrors.ErrUserInactive) {
			h.clearSessionCookies(c)
			RespondWithError(c, http.StatusForbidden, "Account is inactive", "account_inactive", h.logger)
		} else {
			h.logger.Error("Refresh failed", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Token refresh failed", "internal_error", h.logger)
		}
		return
	}

	csrfToken, err := h.setSessionCookies(c, result.Pair.RefreshToken, result.Pair.RefreshExpiresAt)
	if err != nil {
		h.logger.Error("Failed to issue CSRF token", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Token refresh failed", "internal_error", h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{
		"access_token":      result.Pair.AccessToken,
		"access_expires_at": result.Pair.AccessExpiresAt,
		"token_type":        result.Pair.TokenType,
		"csrf_token":        csrfToken,
	})
}

// bearerToken extracts the raw access token for blacklisting at logout.
func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// Logout handles POST /api/v1/auth/logout. Requires authentication.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.cfg.Auth.RefreshCookieName)

	err := h.authService.Logout(c.Request.Context(), refreshToken, bearerToken(c), middleware.UserID(c), h.tokenMetadata(c, ""))
	if err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Logout failed", "internal_error", h.logger)
		return
	}

	h.clearSessionCookies(c)
	RespondWithMessage(c, http.StatusOK, "Logged out")
}

type logoutAllRequest struct {
	KeepCurrent bool `json:"keep_current"`
}

// LogoutAll handles POST /api/v1/auth/logout-all. Revokes every session of
// the caller; with keep_current the presented refresh token is spared.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var req logoutAllRequest
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	var exclude *string
	if req.KeepCurrent {
		if refreshToken, err := c.Cookie(h.cfg.Auth.RefreshCookieName); err == nil && refreshToken != "" {
			exclude = &refreshToken
		}
	}

	count, err := h.authService.LogoutAll(c.Request.Context(), middleware.UserID(c), exclude, h.tokenMetadata(c, ""))
	if err != nil {
		h.logger.Error("Logout all failed", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Logout failed", "internal_error", h.logger)
		return
	}

	if !req.KeepCurrent {
		h.clearSessionCookies(c)
	}
	RespondWithData(c, http.StatusOK, gin.H{"revoked_sessions": count})
}
