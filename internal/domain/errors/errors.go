package errors

import (
	"errors"
)

// Sentinel errors shared across services and repositories.
var (
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrForbidden      = errors.New("access denied")
	ErrUnauthorized   = errors.New("not authorized")

	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("expired token")
	ErrRevokedToken        = errors.New("revoked token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user account is inactive")

	ErrSessionNotFound = errors.New("session not found")
)
