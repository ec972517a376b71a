package entity

import (
	"encoding/json"
	"time"
)

// Audit action identifiers. Free-form strings are accepted by the
// repository; these constants cover the actions the service records itself.
const (
	AuditActionLogin             = "login"
	AuditActionLoginFailed       = "login_failed"
	AuditActionLogout            = "logout"
	AuditActionLogoutAll         = "logout_all"
	AuditActionTokenRefresh      = "token_refresh"
	AuditActionTokenReuse        = "token_reuse_detected"
	AuditActionSessionRevoked    = "session_revoked"
	AuditActionRecordCreated     = "record_created"
	AuditActionRecordUpdated     = "record_updated"
	AuditActionRecordSoftDeleted = "record_soft_deleted"
	AuditActionRecordDeleted     = "record_deleted"
	AuditActionRecordViewed      = "record_viewed"
)

// AuditLog represents a persisted audit trail entry,
// mapping to the "audit_logs" table.
type AuditLog struct {
	ID           int64           `db:"id"`
	UserID       int64           `db:"user_id"`
	Action       string          `db:"action"`
	ResourceType *string         `db:"resource_type"` // Nullable
	ResourceID   *string         `db:"resource_id"`   // Nullable
	IPAddress    *string         `db:"ip_address"`    // Nullable
	UserAgent    *string         `db:"user_agent"`    // Nullable
	Success      bool            `db:"success"`
	ErrorMessage *string         `db:"error_message"` // Nullable
	Details      json.RawMessage `db:"details"`       // Nullable JSONB
	CreatedAt    time.Time       `db:"created_at"`
}

// QueuedAuditLog is the in-memory form held by the audit queue before
// persistence. EnqueuedAt and RetryCount exist only on the queued form.
type QueuedAuditLog struct {
	Entry      AuditLog
	EnqueuedAt time.Time
	RetryCount int
}
