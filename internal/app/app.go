package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
	"github.com/classbridge/records-admin-service/internal/events/kafka"
	httpHandler "github.com/classbridge/records-admin-service/internal/handler/http"
	"github.com/classbridge/records-admin-service/internal/infrastructure/cache"
	"github.com/classbridge/records-admin-service/internal/infrastructure/database"
	"github.com/classbridge/records-admin-service/internal/infrastructure/database/postgres"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
	"github.com/classbridge/records-admin-service/internal/service"
	"github.com/classbridge/records-admin-service/internal/utils/metrics"
)

// Run wires the application together and blocks until shutdown.
//
// Shutdown order matters: the cleanup scheduler stops first, then the HTTP
// server drains, and the audit queue is flushed last so entries produced
// during draining still reach storage.
func Run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database, "file://migrations"); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		logger.Info("Migrations applied")
	}

	pool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisClient.Close()
	blacklist := cache.NewTokenBlacklist(redisClient)
	rateLimiter := cache.NewRateLimiter(redisClient)

	var events service.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "records-admin-service", logger)
		if err != nil {
			return fmt.Errorf("kafka producer failed: %w", err)
		}
		defer producer.Close()
		events = producer
	}

	registry := prometheus.NewRegistry()
	queueMetrics := metrics.NewAuditQueueMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	// Repositories.
	users := database.NewPgxUserRepository(pool)
	refreshTokens := database.NewPgxRefreshTokenRepository(pool)
	auditLogs := database.NewPgxAuditLogRepository(pool)
	districts := database.NewPgxDistrictRepository(pool)
	schools := database.NewPgxSchoolRepository(pool)
	teachers := database.NewPgxTeacherRepository(pool)

	// Services.
	jwtService, err := security.NewJWTService(security.JWTConfig{
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.Issuer,
		Audience:       cfg.Auth.Audience,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("jwt service init failed: %w", err)
	}
	passwords, err := security.NewPasswordService(security.DefaultArgon2idParams())
	if err != nil {
		return fmt.Errorf("password service init failed: %w", err)
	}

	queue := service.NewAuditQueue(auditLogs, service.AuditQueueOptions{
		MaxQueueSize:       cfg.AuditQueue.MaxQueueSize,
		BatchSize:          cfg.AuditQueue.BatchSize,
		MaxRetries:         cfg.AuditQueue.MaxRetries,
		ProcessingInterval: cfg.AuditQueue.ProcessingInterval,
	}, queueMetrics, logger)
	audit := service.NewAuditLogService(queue, auditLogs, cfg.Cleanup.QueueSizeWarning, logger)

	tokenService := service.NewTokenService(refreshTokens, cfg.Auth.TokenByteLength, logger)
	authService := service.NewAuthService(users, tokenService, jwtService, passwords, blacklist, audit, events, cfg.Auth.RefreshTokenTTLDays, logger)
	recordsService := service.NewRecordsService(districts, schools, teachers, audit, logger)

	cleanup := service.NewCleanupService(auditLogs, refreshTokens, queue, cfg.Cleanup, logger)
	cleanup.Start()

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthService:    authService,
		TokenService:   tokenService,
		AuditService:   audit,
		RecordsService: recordsService,
		Users:          users,
		RateLimiter:    rateLimiter,
		Registry:       registry,
		HTTPMetrics:    httpMetrics,
		Config:         cfg,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		cleanup.Stop()
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	cleanup.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer flushCancel()
	if err := queue.Flush(flushCtx); err != nil {
		logger.Error("Audit queue flush failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
