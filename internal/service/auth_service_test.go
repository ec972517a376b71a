package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/infrastructure/security"
)

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type capturedEvent struct {
	Type   string
	UserID int64
}

type memEventPublisher struct {
	events []capturedEvent
}

func (p *memEventPublisher) Publish(eventType string, userID int64, _ string, _ interface{}) error {
	p.events = append(p.events, capturedEvent{Type: eventType, UserID: userID})
	return nil
}

type authFixture struct {
	users     *MockUserRepository
	tokenRepo *memTokenRepo
	events    *memEventPublisher
	sink      *countingSink
	svc       *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := &MockUserRepository{}
	tokenRepo := newMemTokenRepo()
	events := &memEventPublisher{}
	sink := &countingSink{}

	jwtService, err := security.NewJWTService(security.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "test",
		Audience:       "test",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	passwords, err := security.NewPasswordService(security.Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	queue := NewAuditQueue(sink, AuditQueueOptions{ProcessingInterval: time.Millisecond}, nil, zap.NewNop())
	audit := NewAuditLogService(queue, nil, 0, zap.NewNop())
	tokenService := NewTokenService(tokenRepo, 32, zap.NewNop())

	svc := NewAuthService(users, tokenService, jwtService, passwords, nil, audit, events, 7, zap.NewNop())
	return &authFixture{users: users, tokenRepo: tokenRepo, events: events, sink: sink, svc: svc}
}

func (f *authFixture) activeUser(t *testing.T, password string) *entity.User {
	t.Helper()
	passwords, err := security.NewPasswordService(security.Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	hash, err := passwords.HashPassword(password)
	require.NoError(t, err)
	return &entity.User{
		ID:           7,
		Username:     "clerk",
		PasswordHash: hash,
		Role:         entity.RoleDistrictOfficer,
		IsActive:     true,
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")

	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	result, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Pair.AccessToken)
	assert.NotEmpty(t, result.Pair.RefreshToken)
	assert.Equal(t, "Bearer", result.Pair.TokenType)
	assert.Equal(t, int64(7), result.User.ID)

	// Refresh token is persisted and active.
	stored, err := f.tokenRepo.FindByID(context.Background(), result.Pair.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, stored.RevokedAt)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "auth.user.logged_in", f.events.events[0].Type)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("FindByUsername", mock.Anything, "ghost").Return(nil, domainErrors.ErrUserNotFound)

	_, err := f.svc.Login(context.Background(), "ghost", "whatever", TokenMetadata{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
	assert.Empty(t, f.events.events)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)

	_, err := f.svc.Login(context.Background(), "clerk", "wrong", TokenMetadata{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)

	// The failure is audited against the known account.
	waitFor(t, func() bool { return f.sink.storedCount() == 1 })
	assert.Equal(t, entity.AuditActionLoginFailed, f.sink.storedSnapshot()[0].Action)
	assert.Equal(t, int64(7), f.sink.storedSnapshot()[0].UserID)
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	user.IsActive = false
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)

	_, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	assert.ErrorIs(t, err, domainErrors.ErrUserInactive)
}

func TestRefresh_RotatesAndMintsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("FindByID", mock.Anything, int64(7)).Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	login, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), login.Pair.RefreshToken, TokenMetadata{})
	require.NoError(t, err)
	assert.NotEqual(t, login.Pair.RefreshToken, refreshed.Pair.RefreshToken)
	assert.NotEmpty(t, refreshed.Pair.AccessToken)

	// The old refresh token is gone for good.
	old, err := f.tokenRepo.FindByID(context.Background(), login.Pair.RefreshToken)
	require.NoError(t, err)
	assert.NotNil(t, old.RevokedAt)
}

func TestRefresh_ReuseIsRejectedAndPublished(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("FindByID", mock.Anything, int64(7)).Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	login, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), login.Pair.RefreshToken, TokenMetadata{})
	require.NoError(t, err)

	// Replaying the consumed token is the theft signal.
	_, err = f.svc.Refresh(context.Background(), login.Pair.RefreshToken, TokenMetadata{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidRefreshToken)

	var reuseEvents []capturedEvent
	for _, e := range f.events.events {
		if e.Type == "auth.token.reuse_detected" {
			reuseEvents = append(reuseEvents, e)
		}
	}
	require.Len(t, reuseEvents, 1)
	assert.Equal(t, int64(7), reuseEvents[0].UserID)

	waitFor(t, func() bool {
		for _, entry := range f.sink.storedSnapshot() {
			if entry.Action == entity.AuditActionTokenReuse {
				return true
			}
		}
		return false
	})
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), "bogus", TokenMetadata{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidRefreshToken)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	login, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	require.NoError(t, err)

	err = f.svc.Logout(context.Background(), login.Pair.RefreshToken, "", 7, TokenMetadata{})
	require.NoError(t, err)

	stored, err := f.tokenRepo.FindByID(context.Background(), login.Pair.RefreshToken)
	require.NoError(t, err)
	assert.NotNil(t, stored.RevokedAt)
}

func TestLogoutAll_ReportsCount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
		require.NoError(t, err)
	}

	count, err := f.svc.LogoutAll(context.Background(), 7, nil, TokenMetadata{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	active, err := f.tokenRepo.FindActiveByUserID(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestVerifyAccessToken_RoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	user := f.activeUser(t, "correct horse")
	f.users.On("FindByUsername", mock.Anything, "clerk").Return(user, nil)
	f.users.On("UpdateLastLogin", mock.Anything, int64(7), mock.Anything).Return(nil)

	login, err := f.svc.Login(context.Background(), "clerk", "correct horse", TokenMetadata{})
	require.NoError(t, err)

	claims, err := f.svc.VerifyAccessToken(context.Background(), login.Pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "clerk", claims.Username)
	assert.Equal(t, entity.RoleDistrictOfficer, claims.Role)

	_, err = f.svc.VerifyAccessToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}
