package repository

import (
	"context"
	"time"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
)

// ListAuditLogParams filters and paginates audit log listings.
type ListAuditLogParams struct {
	UserID       *int64
	Action       *string
	ResourceType *string
	ResourceID   *string
	Success      *bool
	DateFrom     *time.Time
	DateTo       *time.Time
	SortBy       string
	SortOrder    string
	Page         int
	PerPage      int
}

// AuditLogStats summarizes the audit trail for the admin dashboard.
type AuditLogStats struct {
	TotalEntries   int64            `json:"total_entries"`
	FailedEntries  int64            `json:"failed_entries"`
	CountsByAction map[string]int64 `json:"counts_by_action"`
}

// AuditLogRepository is the durable store behind the audit queue.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLog) error

	List(ctx context.Context, params ListAuditLogParams) ([]*entity.AuditLog, int, error)

	Stats(ctx context.Context, since time.Time) (*AuditLogStats, error)

	// DeleteOlderThan enforces retention. Returns rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
