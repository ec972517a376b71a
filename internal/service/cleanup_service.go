package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

// CleanupService runs the periodic maintenance loops: audit retention
// (daily), refresh token purge (weekly) and audit queue health checks
// (every few minutes). Stop must complete before the audit queue is
// flushed at shutdown.
type CleanupService struct {
	auditRepo repository.AuditLogRepository
	tokenRepo repository.RefreshTokenRepository
	queue     *AuditQueue
	cfg       config.CleanupConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleanupService creates a CleanupService.
func NewCleanupService(
	auditRepo repository.AuditLogRepository,
	tokenRepo repository.RefreshTokenRepository,
	queue *AuditQueue,
	cfg config.CleanupConfig,
	logger *zap.Logger,
) *CleanupService {
	return &CleanupService{
		auditRepo: auditRepo,
		tokenRepo: tokenRepo,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the maintenance tickers.
func (s *CleanupService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(3)
	go s.runTicker(ctx, s.cfg.AuditSweepInterval, s.sweepAuditLogs)
	go s.runTicker(ctx, s.cfg.TokenPurgeInterval, s.purgeTokens)
	go s.runTicker(ctx, s.cfg.QueueCheckInterval, s.checkQueueHealth)

	s.logger.Info("Cleanup scheduler started",
		zap.Duration("audit_sweep_interval", s.cfg.AuditSweepInterval),
		zap.Duration("token_purge_interval", s.cfg.TokenPurgeInterval),
		zap.Duration("queue_check_interval", s.cfg.QueueCheckInterval))
}

// Stop cancels the tickers and waits for in-flight runs to finish.
func (s *CleanupService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Cleanup scheduler stopped")
}

func (s *CleanupService) runTicker(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *CleanupService) sweepAuditLogs(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.AuditRetention)
	removed, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Audit retention sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Audit retention sweep complete",
		zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
}

func (s *CleanupService) purgeTokens(ctx context.Context) {
	removed, err := s.tokenRepo.DeleteExpiredAndRevoked(ctx, s.cfg.RevokedRetention)
	if err != nil {
		s.logger.Error("Refresh token purge failed", zap.Error(err))
		return
	}
	s.logger.Info("Refresh token purge complete", zap.Int64("removed", removed))
}

func (s *CleanupService) checkQueueHealth(ctx context.Context) {
	stats := s.queue.GetQueueStats()
	if stats.OldestLogAge > s.cfg.QueueAgeWarning || stats.QueueSize >= s.cfg.QueueSizeWarning {
		s.logger.Warn("Audit queue backed up",
			zap.Int("queue_size", stats.QueueSize),
			zap.Bool("is_processing", stats.IsProcessing),
			zap.Duration("oldest_log_age", stats.OldestLogAge))
		return
	}
	s.logger.Debug("Audit queue healthy",
		zap.Int("queue_size", stats.QueueSize),
		zap.Bool("is_processing", stats.IsProcessing))
}
