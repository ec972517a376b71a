package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
)

// TokenMetadata is opaque client context attached to a refresh token.
// The service stores it verbatim and never interprets it.
type TokenMetadata struct {
	DeviceID  *string
	IPAddress *string
	UserAgent *string
}

// IssuedToken is the result of issuing a fresh refresh token.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// RotatedToken is the result of a successful rotation.
type RotatedToken struct {
	Token     string
	ExpiresAt time.Time
	UserID    int64
}

// ReuseDetection reports that an already-rotated token was replayed, the
// primary theft signal. Carries the owner so callers can record and react.
type ReuseDetection struct {
	UserID    int64
	RevokedAt time.Time
}

// SessionView is the listing form of an active session.
type SessionView struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	DeviceID  *string    `json:"device_id,omitempty"`
	IPAddress *string    `json:"ip_address,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// SessionDetail is the single-session form, including revocation state.
type SessionDetail struct {
	SessionView
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *string    `json:"replaced_by,omitempty"`
}

// TokenService manages the refresh token lifecycle: issuance, rotation,
// revocation and session enumeration. It holds no in-process locks; the
// conditional revoke in the repository is the only write serialization,
// so two concurrent rotations of the same token may both create
// successors — only one marks the predecessor rotated (fail-open toward
// continued access rather than lockout).
type TokenService struct {
	tokens          repository.RefreshTokenRepository
	logger          *zap.Logger
	tokenByteLength int
}

// NewTokenService creates a TokenService.
func NewTokenService(tokens repository.RefreshTokenRepository, tokenByteLength int, logger *zap.Logger) *TokenService {
	if tokenByteLength <= 0 {
		tokenByteLength = 32
	}
	return &TokenService{tokens: tokens, logger: logger, tokenByteLength: tokenByteLength}
}

// IssueRefreshToken creates and persists a new refresh token for the user.
// TTL is whole days. Persistence failures propagate to the caller.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID int64, ttlDays int, meta TokenMetadata) (*IssuedToken, error) {
	value, err := security.GenerateOpaqueToken(s.tokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	token := &entity.RefreshToken{
		ID:        value,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
		DeviceID:  meta.DeviceID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &IssuedToken{Token: value, ExpiresAt: token.ExpiresAt}, nil
}

// RotateRefreshToken exchanges a presented token for a fresh one.
//
// The caller must have already passed the CSRF double-submit check; this
// service only validates the token itself. Returns (nil, nil, nil) when
// the token is unknown or expired, and a non-nil ReuseDetection when a
// revoked token is replayed. The service does not revoke sibling tokens on
// reuse; that decision stays with the caller.
//
// On success the new token is persisted before the old one is marked
// revoked, so a crash between the two steps leaves two active tokens
// rather than none.
func (s *TokenService) RotateRefreshToken(ctx context.Context, oldToken string, ttlDays int, meta TokenMetadata) (*RotatedToken, *ReuseDetection, error) {
	current, err := s.tokens.FindByID(ctx, oldToken)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if current.RevokedAt != nil {
		s.logger.Warn("Revoked refresh token replayed",
			zap.Int64("user_id", current.UserID),
			zap.Timep("revoked_at", current.RevokedAt))
		return nil, &ReuseDetection{UserID: current.UserID, RevokedAt: *current.RevokedAt}, nil
	}
	if current.IsExpired() {
		return nil, nil, nil
	}

	issued, err := s.IssueRefreshToken(ctx, current.UserID, ttlDays, meta)
	if err != nil {
		return nil, nil, err
	}

	changed, err := s.tokens.MarkRevoked(ctx, current.ID, time.Now(), &issued.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to revoke rotated refresh token: %w", err)
	}
	if !changed {
		// A concurrent rotation won the revoke. Both successors stay
		// valid; logged for operator visibility.
		s.logger.Warn("Lost rotation race for refresh token", zap.Int64("user_id", current.UserID))
	}

	return &RotatedToken{Token: issued.Token, ExpiresAt: issued.ExpiresAt, UserID: current.UserID}, nil, nil
}

// RevokeToken marks the token revoked. Idempotent: revoking an already
// revoked or unknown token is a no-op.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.tokens.MarkRevoked(ctx, token, time.Now(), nil); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active token of the user, optionally
// sparing one ("log out other sessions"). Returns the number revoked.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64, excludeToken *string) (int64, error) {
	count, err := s.tokens.RevokeAllForUser(ctx, userID, excludeToken, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens for user: %w", err)
	}
	s.logger.Info("Revoked refresh tokens for user",
		zap.Int64("user_id", userID), zap.Int64("count", count))
	return count, nil
}

// GetUserSessions lists the user's currently active sessions.
func (s *TokenService) GetUserSessions(ctx context.Context, userID int64) ([]*SessionView, error) {
	tokens, err := s.tokens.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	views := make([]*SessionView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, &SessionView{
			ID:        t.ID,
			CreatedAt: t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
			DeviceID:  t.DeviceID,
			IPAddress: t.IPAddress,
			UserAgent: t.UserAgent,
			IsActive:  true,
		})
	}
	return views, nil
}

// RevokeSession revokes a single session only if it belongs to the given
// user. Returns whether a row was actually changed.
func (s *TokenService) RevokeSession(ctx context.Context, sessionID string, userID int64) (bool, error) {
	token, err := s.tokens.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up session: %w", err)
	}
	if token.UserID != userID {
		return false, nil
	}
	changed, err := s.tokens.MarkRevoked(ctx, sessionID, time.Now(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return changed, nil
}

// GetSessionInfo returns full session detail, scoped to the owning user.
// Returns nil when the session does not exist or belongs to someone else.
func (s *TokenService) GetSessionInfo(ctx context.Context, sessionID string, userID int64) (*SessionDetail, error) {
	token, err := s.tokens.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if token.UserID != userID {
		return nil, nil
	}
	return &SessionDetail{
		SessionView: SessionView{
			ID:        token.ID,
			CreatedAt: token.IssuedAt,
			ExpiresAt: token.ExpiresAt,
			DeviceID:  token.DeviceID,
			IPAddress: token.IPAddress,
			UserAgent: token.UserAgent,
			IsActive:  token.IsActive(),
		},
		RevokedAt:  token.RevokedAt,
		ReplacedBy: token.ReplacedBy,
	}, nil
}
