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
	"github.com/classbridge/records-admin-service/internal/events/kafka"
	"github.com/classbridge/records-admin-service/internal/infrastructure/cache"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
)

// EventPublisher is the platform event bus. The Kafka producer satisfies
// it; a nil publisher disables event delivery.
type EventPublisher interface {
	Publish(eventType string, userID int64, ipAddress string, data interface{}) error
}

// TokenPair is the credential set handed to a client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	TokenType        string    `json:"token_type"`
}

// LoginResult carries the credentials and the authenticated user.
type LoginResult struct {
	Pair TokenPair
	User *entity.User
}

// AuthService glues the account store, token service, access-token issuer
// and audit/event sinks into the login/refresh/logout flows.
type AuthService struct {
	users        repository.UserRepository
	tokenService *TokenService
	jwtService   *security.JWTService
	passwords    *security.PasswordService
	blacklist    *cache.TokenBlacklist
	audit        *AuditLogService
	events       EventPublisher
	refreshTTL   int // whole days
	logger       *zap.Logger
}

// NewAuthService creates an AuthService. events may be nil.
func NewAuthService(
	users repository.UserRepository,
	tokenService *TokenService,
	jwtService *security.JWTService,
	passwords *security.PasswordService,
	blacklist *cache.TokenBlacklist,
	audit *AuditLogService,
	events EventPublisher,
	refreshTTLDays int,
	logger *zap.Logger,
) *AuthService {
	if refreshTTLDays <= 0 {
		refreshTTLDays = 7
	}
	return &AuthService{
		users:        users,
		tokenService: tokenService,
		jwtService:   jwtService,
		passwords:    passwords,
		blacklist:    blacklist,
		audit:        audit,
		events:       events,
		refreshTTL:   refreshTTLDays,
		logger:       logger,
	}
}

func (s *AuthService) publish(eventType string, userID int64, ip string, data interface{}) {
	if s.events == nil {
		return
	}
	// Event delivery is best effort; a bus outage never fails the
	// business operation.
	if err := s.events.Publish(eventType, userID, ip, data); err != nil {
		s.logger.Error("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, username, password string, meta TokenMetadata) (*LoginResult, error) {
	actx := auditContext(0, meta)

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			// No account to attribute the failure to; the audit façade
			// drops unattributed entries.
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	actx.UserID = user.ID

	if !user.IsActive {
		s.audit.RecordLoginFailed(actx, "account inactive")
		return nil, domainErrors.ErrUserInactive
	}

	ok, err := s.passwords.CheckPasswordHash(password, user.PasswordHash)
	if err != nil || !ok {
		s.audit.RecordLoginFailed(actx, "invalid password")
		return nil, domainErrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Non-fatal; the session is already established.
		s.logger.Warn("Failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.audit.RecordLogin(actx)
	s.publish(kafka.EventUserLoggedIn, user.ID, actx.IPAddress, nil)

	return &LoginResult{Pair: *pair, User: user}, nil
}

// Refresh rotates the presented refresh token and mints a new access
// token. The HTTP layer performs the CSRF double-submit check before this
// is reachable.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta TokenMetadata) (*LoginResult, error) {
	rotated, reuse, err := s.tokenService.RotateRefreshToken(ctx, refreshToken, s.refreshTTL, meta)
	if err != nil {
		return nil, err
	}
	if reuse != nil {
		actx := auditContext(reuse.UserID, meta)
		s.audit.RecordTokenReuse(actx)
		s.publish(kafka.EventTokenReuseDetected, reuse.UserID, actx.IPAddress,
			map[string]interface{}{"revoked_at": reuse.RevokedAt})
		return nil, domainErrors.ErrInvalidRefreshToken
	}
	if rotated == nil {
		return nil, domainErrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, rotated.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, domainErrors.ErrUserInactive
	}

	accessToken, accessExpiry, err := s.jwtService.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	actx := auditContext(user.ID, meta)
	s.audit.RecordTokenRefresh(actx)

	return &LoginResult{
		Pair: TokenPair{
			AccessToken:      accessToken,
			AccessExpiresAt:  accessExpiry,
			RefreshToken:     rotated.Token,
			RefreshExpiresAt: rotated.ExpiresAt,
			TokenType:        "Bearer",
		},
		User: user,
	}, nil
}

// Logout revokes the refresh token and blacklists the access token for
// its residual lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string, userID int64, meta TokenMetadata) error {
	if err := s.tokenService.RevokeToken(ctx, refreshToken); err != nil {
		return err
	}

	if accessToken != "" && s.blacklist != nil {
		if claims, err := s.jwtService.ValidateAccessToken(accessToken); err == nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			if err := s.blacklist.Add(ctx, accessToken, ttl); err != nil {
				s.logger.Warn("Failed to blacklist access token", zap.Error(err))
			}
		}
	}

	actx := auditContext(userID, meta)
	s.audit.RecordLogout(actx)
	s.publish(kafka.EventUserLoggedOut, userID, actx.IPAddress, nil)
	return nil
}

// LogoutAll revokes every session of the user, optionally sparing the
// current refresh token ("log out other sessions"). Returns the count.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64, excludeToken *string, meta TokenMetadata) (int64, error) {
	count, err := s.tokenService.RevokeAllForUser(ctx, userID, excludeToken)
	if err != nil {
		return 0, err
	}

	actx := auditContext(userID, meta)
	s.audit.RecordLogoutAll(actx, count)
	s.publish(kafka.EventAllSessionsRevoked, userID, actx.IPAddress,
		map[string]interface{}{"revoked_sessions": count})
	return count, nil
}

// VerifyAccessToken validates a bearer token against signature, expiry
// and the logout blacklist.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*security.Claims, error) {
	if s.blacklist != nil {
		blacklisted, err := s.blacklist.Contains(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if blacklisted {
			return nil, domainErrors.ErrRevokedToken
		}
	}
	return s.jwtService.ValidateAccessToken(token)
}

func (s *AuthService) issuePair(ctx context.Context, user *entity.User, meta TokenMetadata) (*TokenPair, error) {
	accessToken, accessExpiry, err := s.jwtService.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokenService.IssueRefreshToken(ctx, user.ID, s.refreshTTL, meta)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		TokenType:        "Bearer",
	}, nil
}

func auditContext(userID int64, meta TokenMetadata) AuditContext {
	actx := AuditContext{UserID: userID}
	if meta.IPAddress != nil {
		actx.IPAddress = *meta.IPAddress
	}
	if meta.UserAgent != nil {
		actx.UserAgent = *meta.UserAgent
	}
	return actx
}
