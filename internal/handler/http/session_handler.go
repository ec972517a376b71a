package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/handler/http/middleware"
	"github.com/classbridge/records-admin-service/internal/service"
)

// SessionHandler exposes the caller's own sessions under /api/v1/me.
type SessionHandler struct {
	logger       *zap.Logger
	tokenService *service.TokenService
	audit        *service.AuditLogService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(logger *zap.Logger, tokenService *service.TokenService, audit *service.AuditLogService) *SessionHandler {
	return &SessionHandler{
		logger:       logger.Named("session_handler"),
		tokenService: tokenService,
		audit:        audit,
	}
}

// ListSessions handles GET /api/v1/me/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.tokenService.GetUserSessions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to list sessions", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles GET /api/v1/me/sessions/:id. Sessions of other users
// are indistinguishable from missing ones.
func (h *SessionHandler) GetSession(c *gin.Context) {
	detail, err := h.tokenService.GetSessionInfo(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to load session", "internal_error", h.logger)
		return
	}
	if detail == nil {
		RespondWithError(c, http.StatusNotFound, "Session not found", "not_found", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, detail)
}

// RevokeSession handles DELETE /api/v1/me/sessions/:id.
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	userID := middleware.UserID(c)
	sessionID := c.Param("id")

	changed, err := h.tokenService.RevokeSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.logger.Error("Failed to revoke session", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to revoke session", "internal_error", h.logger)
		return
	}
	if !changed {
		RespondWithError(c, http.StatusNotFound, "Session not found", "not_found", h.logger)
		return
	}

	actx := service.AuditContext{UserID: userID, IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	h.audit.RecordSessionRevoked(actx, sessionID)
	RespondWithNoContent(c)
}
