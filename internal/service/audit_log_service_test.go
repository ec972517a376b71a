package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
)

func newTestAuditService(sink *countingSink, shedThreshold int) (*AuditLogService, *AuditQueue) {
	queue := NewAuditQueue(sink, AuditQueueOptions{
		MaxQueueSize:       100,
		BatchSize:          10,
		MaxRetries:         3,
		ProcessingInterval: time.Millisecond,
	}, nil, zap.NewNop())
	return NewAuditLogService(queue, nil, shedThreshold, zap.NewNop()), queue
}

func TestRecord_DropsUnattributedEntries(t *testing.T) {
	sink := &countingSink{}
	svc, queue := newTestAuditService(sink, 0)

	svc.RecordLogin(AuditContext{UserID: 0})
	svc.RecordLoginFailed(AuditContext{UserID: -1}, "bad password")
	svc.RecordLogout(AuditContext{UserID: 0})

	assert.Equal(t, 0, queue.GetQueueStats().QueueSize)
	assert.Equal(t, 0, sink.callCount())
}

func TestRecord_PersistsAttributedEntries(t *testing.T) {
	sink := &countingSink{}
	svc, _ := newTestAuditService(sink, 0)

	svc.RecordLogin(AuditContext{UserID: 7, IPAddress: "10.0.0.1", UserAgent: "cli"})
	waitFor(t, func() bool { return sink.storedCount() == 1 })

	entry := sink.storedSnapshot()[0]
	assert.Equal(t, int64(7), entry.UserID)
	assert.Equal(t, entity.AuditActionLogin, entry.Action)
	assert.True(t, entry.Success)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}

func TestRecordLoginFailed_CarriesErrorMessage(t *testing.T) {
	sink := &countingSink{}
	svc, _ := newTestAuditService(sink, 0)

	svc.RecordLoginFailed(AuditContext{UserID: 7}, "invalid password")
	waitFor(t, func() bool { return sink.storedCount() == 1 })

	entry := sink.storedSnapshot()[0]
	assert.False(t, entry.Success)
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "invalid password", *entry.ErrorMessage)
}

func TestRecordLogoutAll_CarriesDetails(t *testing.T) {
	sink := &countingSink{}
	svc, _ := newTestAuditService(sink, 0)

	svc.RecordLogoutAll(AuditContext{UserID: 7}, 3)
	waitFor(t, func() bool { return sink.storedCount() == 1 })

	entry := sink.storedSnapshot()[0]
	assert.Equal(t, entity.AuditActionLogoutAll, entry.Action)
	assert.Contains(t, string(entry.Details), "revoked_sessions")
}

func TestRecord_OversizedDetailsDroppedEntryKept(t *testing.T) {
	sink := &countingSink{}
	svc, _ := newTestAuditService(sink, 0)

	svc.RecordRecordChange(AuditContext{UserID: 7}, entity.AuditActionRecordUpdated, "school", "9",
		map[string]interface{}{"blob": strings.Repeat("x", maxDetailsBytes+1)})
	waitFor(t, func() bool { return sink.storedCount() == 1 })

	// The entry persists without its oversized payload.
	entry := sink.storedSnapshot()[0]
	assert.Equal(t, entity.AuditActionRecordUpdated, entry.Action)
	assert.Nil(t, entry.Details)
}

func TestRecordView_ShedInMaintenanceMode(t *testing.T) {
	sink := &countingSink{}
	svc, queue := newTestAuditService(sink, 0)

	svc.SetMaintenanceMode(true)
	for i := 0; i < 20; i++ {
		svc.RecordView(AuditContext{UserID: 7}, "district", "1")
	}
	assert.Equal(t, 0, queue.GetQueueStats().QueueSize)
	assert.Equal(t, 0, sink.callCount())

	// Security events are still admitted in maintenance mode.
	svc.RecordTokenReuse(AuditContext{UserID: 7})
	waitFor(t, func() bool { return sink.storedCount() == 1 })
	assert.Equal(t, entity.AuditActionTokenReuse, sink.storedSnapshot()[0].Action)

	svc.SetMaintenanceMode(false)
	svc.RecordView(AuditContext{UserID: 7}, "district", "1")
	waitFor(t, func() bool { return sink.storedCount() == 2 })
}

func TestRecordView_AdmittedBelowThreshold(t *testing.T) {
	sink := &countingSink{}
	svc, _ := newTestAuditService(sink, 50)

	// Queue is far below the shed threshold, every view is admitted.
	for i := 0; i < 10; i++ {
		svc.RecordView(AuditContext{UserID: 7}, "school", "9")
	}
	waitFor(t, func() bool { return sink.storedCount() == 10 })
}
