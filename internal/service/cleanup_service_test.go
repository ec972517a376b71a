package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

// memAuditRepo implements just enough of AuditLogRepository for retention
// tests.
type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLog
}

func (r *memAuditRepo) Create(_ context.Context, entry *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memAuditRepo) List(_ context.Context, _ repository.ListAuditLogParams) ([]*entity.AuditLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.AuditLog{}, r.entries...), len(r.entries), nil
}

func (r *memAuditRepo) Stats(_ context.Context, _ time.Time) (*repository.AuditLogStats, error) {
	return &repository.AuditLogStats{}, nil
}

func (r *memAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*entity.AuditLog
	var removed int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func (r *memAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func newCleanupFixture(cfg config.CleanupConfig) (*CleanupService, *memAuditRepo, *memTokenRepo) {
	auditRepo := &memAuditRepo{}
	tokenRepo := newMemTokenRepo()
	queue := NewAuditQueue(auditRepo, AuditQueueOptions{}, nil, zap.NewNop())
	return NewCleanupService(auditRepo, tokenRepo, queue, cfg, zap.NewNop()), auditRepo, tokenRepo
}

func TestCleanup_SweepAuditLogs(t *testing.T) {
	svc, auditRepo, _ := newCleanupFixture(config.CleanupConfig{AuditRetention: 24 * time.Hour})
	ctx := context.Background()

	old := &entity.AuditLog{UserID: 1, Action: entity.AuditActionLogin, CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &entity.AuditLog{UserID: 1, Action: entity.AuditActionLogin, CreatedAt: time.Now()}
	require.NoError(t, auditRepo.Create(ctx, old))
	require.NoError(t, auditRepo.Create(ctx, fresh))

	svc.sweepAuditLogs(ctx)
	assert.Equal(t, 1, auditRepo.count())
}

func TestCleanup_PurgeTokens(t *testing.T) {
	svc, _, tokenRepo := newCleanupFixture(config.CleanupConfig{RevokedRetention: 24 * time.Hour})
	ctx := context.Background()

	now := time.Now()
	longRevoked := now.Add(-48 * time.Hour)
	require.NoError(t, tokenRepo.Create(ctx, &entity.RefreshToken{
		ID: "expired", UserID: 1, ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, tokenRepo.Create(ctx, &entity.RefreshToken{
		ID: "revoked-old", UserID: 1, ExpiresAt: now.Add(time.Hour), RevokedAt: &longRevoked,
	}))
	require.NoError(t, tokenRepo.Create(ctx, &entity.RefreshToken{
		ID: "active", UserID: 1, ExpiresAt: now.Add(time.Hour),
	}))

	svc.purgeTokens(ctx)

	_, err := tokenRepo.FindByID(ctx, "active")
	assert.NoError(t, err)
	_, err = tokenRepo.FindByID(ctx, "expired")
	assert.Error(t, err)
	_, err = tokenRepo.FindByID(ctx, "revoked-old")
	assert.Error(t, err)
}

func TestCleanup_StartStop(t *testing.T) {
	svc, _, _ := newCleanupFixture(config.CleanupConfig{
		AuditRetention:     time.Hour,
		AuditSweepInterval: time.Hour,
		TokenPurgeInterval: time.Hour,
		QueueCheckInterval: time.Hour,
	})

	svc.Start()
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}
