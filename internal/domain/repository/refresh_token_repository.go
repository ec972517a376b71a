package repository

import (
	"context"
	"time"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
)

// RefreshTokenRepository persists refresh tokens. Implementations must
// make MarkRevoked a single conditional write guarded by revoked_at IS NULL
// so that of two concurrent revocations of the same row exactly one reports
// it changed the row.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error

	FindByID(ctx context.Context, id string) (*entity.RefreshToken, error)

	// FindActiveByUserID returns tokens with revoked_at IS NULL and
	// expires_at in the future, newest first.
	FindActiveByUserID(ctx context.Context, userID int64) ([]*entity.RefreshToken, error)

	// MarkRevoked sets revoked_at (and replaced_by when non-nil) on the
	// row if it is not already revoked. Returns whether a row was changed.
	MarkRevoked(ctx context.Context, id string, revokedAt time.Time, replacedBy *string) (bool, error)

	// RevokeAllForUser revokes every unrevoked token of the user,
	// optionally sparing one token id. Returns the number of rows changed.
	RevokeAllForUser(ctx context.Context, userID int64, excludeID *string, revokedAt time.Time) (int64, error)

	// DeleteExpiredAndRevoked removes rows that are expired, or revoked
	// longer ago than the retention window. Bulk cleanup only; normal
	// operation never deletes token rows.
	DeleteExpiredAndRevoked(ctx context.Context, revokedRetention time.Duration) (int64, error)
}
