package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
)

func testArgonParams() Argon2idParams {
	return Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	token, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	// Two tokens never collide.
	other, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	// Non-positive length falls back to 32 bytes.
	fallback, err := GenerateOpaqueToken(0)
	require.NoError(t, err)
	raw, err = base64.RawURLEncoding.DecodeString(fallback)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestPasswordService_HashAndCheck(t *testing.T) {
	svc, err := NewPasswordService(testArgonParams())
	require.NoError(t, err)

	hash, err := svc.HashPassword("s3cret-passphrase")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := svc.CheckPasswordHash("s3cret-passphrase", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckPasswordHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordService_RejectsMalformedHash(t *testing.T) {
	svc, err := NewPasswordService(testArgonParams())
	require.NoError(t, err)

	_, err = svc.CheckPasswordHash("anything", "not-a-hash")
	assert.Error(t, err)

	_, err = svc.CheckPasswordHash("anything", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
	assert.Error(t, err)
}

func TestPasswordService_SaltsDiffer(t *testing.T) {
	svc, err := NewPasswordService(testArgonParams())
	require.NoError(t, err)

	first, err := svc.HashPassword("same password")
	require.NoError(t, err)
	second, err := svc.HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestNewPasswordService_ValidatesParams(t *testing.T) {
	_, err := NewPasswordService(Argon2idParams{})
	assert.Error(t, err)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{
		Secret:         "unit-test-secret",
		Issuer:         "records-admin-service",
		Audience:       "classbridge",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken(7, "clerk", "district_officer")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "clerk", claims.Username)
	assert.Equal(t, "district_officer", claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{
		Secret:         "unit-test-secret",
		AccessTokenTTL: time.Nanosecond,
	})
	require.NoError(t, err)

	token, _, err := svc.GenerateAccessToken(7, "clerk", "admin")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domainErrors.ErrExpiredToken)
}

func TestJWTService_RejectsTampering(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret-a", AccessTokenTTL: time.Minute})
	require.NoError(t, err)

	foreign, err := NewJWTService(JWTConfig{Secret: "secret-b", AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	token, _, err := foreign.GenerateAccessToken(7, "clerk", "admin")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)

	_, err = svc.ValidateAccessToken("garbage.token.value")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	assert.Error(t, err)
}
