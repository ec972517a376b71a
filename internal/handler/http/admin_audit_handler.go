package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/repository"
	"github.com/classbridge/records-admin-service/internal/service"
)

// AdminAuditHandler exposes the audit trail to administrators: listing
// with filters, aggregate statistics and queue health.
type AdminAuditHandler struct {
	logger *zap.Logger
	audit  *service.AuditLogService
}

// NewAdminAuditHandler creates an AdminAuditHandler.
func NewAdminAuditHandler(logger *zap.Logger, audit *service.AuditLogService) *AdminAuditHandler {
	return &AdminAuditHandler{
		logger: logger.Named("admin_audit_handler"),
		audit:  audit,
	}
}

func parseListParams(c *gin.Context) repository.ListAuditLogParams {
	params := repository.ListAuditLogParams{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
		Page:      1,
		PerPage:   50,
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(c.Query("per_page")); err == nil && v > 0 && v <= 200 {
		params.PerPage = v
	}
	if v, err := strconv.ParseInt(c.Query("user_id"), 10, 64); err == nil {
		params.UserID = &v
	}
	if action := c.Query("action"); action != "" {
		params.Action = &action
	}
	if rt := c.Query("resource_type"); rt != "" {
		params.ResourceType = &rt
	}
	if v := c.Query("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			params.Success = &b
		}
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.DateFrom = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.DateTo = &t
		}
	}
	return params
}

// List handles GET /api/v1/admin/audit-logs.
func (h *AdminAuditHandler) List(c *gin.Context) {
	params := parseListParams(c)
	logs, total, err := h.audit.List(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Failed to list audit logs", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to list audit logs", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{
		"logs":     logs,
		"total":    total,
		"page":     params.Page,
		"per_page": params.PerPage,
	})
}

// Stats handles GET /api/v1/admin/audit-logs/stats. The window defaults to
// the last 24 hours.
func (h *AdminAuditHandler) Stats(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "Invalid since parameter", "invalid_request", h.logger)
			return
		}
		since = t
	}

	stats, err := h.audit.Stats(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("Failed to compute audit stats", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to compute audit stats", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, stats)
}

// QueueStats handles GET /api/v1/admin/audit-logs/queue.
func (h *AdminAuditHandler) QueueStats(c *gin.Context) {
	stats := h.audit.QueueStats()
	RespondWithData(c, http.StatusOK, gin.H{
		"queue_size":     stats.QueueSize,
		"is_processing":  stats.IsProcessing,
		"oldest_log_age": stats.OldestLogAge.String(),
	})
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

// SetMaintenanceMode handles PUT /api/v1/admin/audit-logs/maintenance.
// While enabled, routine view events are shed before they reach the queue.
func (h *AdminAuditHandler) SetMaintenanceMode(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	h.audit.SetMaintenanceMode(req.Enabled)
	h.logger.Info("Audit maintenance mode changed", zap.Bool("enabled", req.Enabled))
	RespondWithData(c, http.StatusOK, gin.H{"enabled": req.Enabled})
}
