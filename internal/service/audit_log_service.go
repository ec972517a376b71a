package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

// maxDetailsBytes bounds the structured payload before it reaches storage.
const maxDetailsBytes = 4096

// AuditContext is the request context attached to every recorded event.
type AuditContext struct {
	UserID    int64
	IPAddress string
	UserAgent string
}

// AuditLogService is the synchronous recording façade business code calls.
// Internally every Record call is an enqueue; recording never blocks on
// storage and never surfaces failures to the caller.
//
// Entries with a non-positive user id are dropped before they reach the
// queue: failed logins that cannot be attributed to a real account are not
// audited. That suppresses a potentially useful security signal; kept as
// the observed product behavior.
type AuditLogService struct {
	queue  *AuditQueue
	repo   repository.AuditLogRepository
	logger *zap.Logger

	// Above this depth routine view events are shed probabilistically.
	viewShedThreshold int
	maintenanceMode   atomic.Bool
}

// NewAuditLogService creates the audit façade. viewShedThreshold <= 0
// disables load shedding for view events.
func NewAuditLogService(queue *AuditQueue, repo repository.AuditLogRepository, viewShedThreshold int, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		queue:             queue,
		repo:              repo,
		logger:            logger,
		viewShedThreshold: viewShedThreshold,
	}
}

// SetMaintenanceMode toggles shedding of routine view events regardless of
// queue depth. Security and failure events are always admitted.
func (s *AuditLogService) SetMaintenanceMode(on bool) {
	s.maintenanceMode.Store(on)
}

func (s *AuditLogService) record(actx AuditContext, action string, resourceType, resourceID string, success bool, errorMessage string, details map[string]interface{}) {
	if actx.UserID <= 0 {
		s.logger.Debug("Dropping unattributed audit entry", zap.String("action", action))
		return
	}

	entry := entity.AuditLog{
		UserID:    actx.UserID,
		Action:    action,
		Success:   success,
		CreatedAt: time.Now(),
	}
	if resourceType != "" {
		entry.ResourceType = &resourceType
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if actx.IPAddress != "" {
		entry.IPAddress = &actx.IPAddress
	}
	if actx.UserAgent != "" {
		entry.UserAgent = &actx.UserAgent
	}
	if errorMessage != "" {
		entry.ErrorMessage = &errorMessage
	}
	if len(details) > 0 {
		payload, err := json.Marshal(details)
		if err != nil {
			s.logger.Error("Failed to marshal audit details", zap.Error(err), zap.String("action", action))
		} else if len(payload) > maxDetailsBytes {
			// Truncating would corrupt the JSON payload, so it is dropped
			// whole; the entry itself still persists.
			s.logger.Warn("Audit details dropped, payload too large", zap.String("action", action), zap.Int("size", len(payload)))
		} else {
			entry.Details = payload
		}
	}

	s.queue.Enqueue(entry)
}

// shouldShedView applies the priority admission policy for routine view
// events: under maintenance mode or a deep queue, half of them are shed.
func (s *AuditLogService) shouldShedView() bool {
	if s.maintenanceMode.Load() {
		return true
	}
	if s.viewShedThreshold <= 0 {
		return false
	}
	if s.queue.GetQueueStats().QueueSize < s.viewShedThreshold {
		return false
	}
	return rand.Float64() < 0.5
}

// RecordLogin records a successful login.
func (s *AuditLogService) RecordLogin(actx AuditContext) {
	s.record(actx, entity.AuditActionLogin, "user", "", true, "", nil)
}

// RecordLoginFailed records a failed login for a known account.
func (s *AuditLogService) RecordLoginFailed(actx AuditContext, reason string) {
	s.record(actx, entity.AuditActionLoginFailed, "user", "", false, reason, nil)
}

// RecordLogout records a logout.
func (s *AuditLogService) RecordLogout(actx AuditContext) {
	s.record(actx, entity.AuditActionLogout, "user", "", true, "", nil)
}

// RecordLogoutAll records a bulk session revocation.
func (s *AuditLogService) RecordLogoutAll(actx AuditContext, revoked int64) {
	s.record(actx, entity.AuditActionLogoutAll, "user", "", true, "",
		map[string]interface{}{"revoked_sessions": revoked})
}

// RecordTokenRefresh records a successful token rotation.
func (s *AuditLogService) RecordTokenRefresh(actx AuditContext) {
	s.record(actx, entity.AuditActionTokenRefresh, "session", "", true, "", nil)
}

// RecordTokenReuse records a replayed (already rotated) refresh token.
func (s *AuditLogService) RecordTokenReuse(actx AuditContext) {
	s.record(actx, entity.AuditActionTokenReuse, "session", "", false, "revoked refresh token replayed", nil)
}

// RecordSessionRevoked records a single-session revocation.
func (s *AuditLogService) RecordSessionRevoked(actx AuditContext, sessionID string) {
	s.record(actx, entity.AuditActionSessionRevoked, "session", sessionID, true, "", nil)
}

// RecordRecordChange records a mutation of a domain record.
func (s *AuditLogService) RecordRecordChange(actx AuditContext, action, resourceType, resourceID string, details map[string]interface{}) {
	s.record(actx, action, resourceType, resourceID, true, "", details)
}

// RecordView records a read access, subject to the priority admission
// policy: under load or maintenance, view events may be shed.
func (s *AuditLogService) RecordView(actx AuditContext, resourceType, resourceID string) {
	if s.shouldShedView() {
		return
	}
	s.record(actx, entity.AuditActionRecordViewed, resourceType, resourceID, true, "", nil)
}

// List passes an admin listing query through to the repository.
func (s *AuditLogService) List(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLog, int, error) {
	return s.repo.List(ctx, params)
}

// Stats returns audit statistics since the given time.
func (s *AuditLogService) Stats(ctx context.Context, since time.Time) (*repository.AuditLogStats, error) {
	return s.repo.Stats(ctx, since)
}

// QueueStats exposes queue health for the scheduler and the admin API.
func (s *AuditLogService) QueueStats() QueueStats {
	return s.queue.GetQueueStats()
}
