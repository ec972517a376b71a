package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

type pgxRefreshTokenRepository struct {
	db *pgxpool.Pool
}

// NewPgxRefreshTokenRepository creates a new pgx-backed refresh token store.
func NewPgxRefreshTokenRepository(db *pgxpool.Pool) repository.RefreshTokenRepository {
	return &pgxRefreshTokenRepository{db: db}
}

func (r *pgxRefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, issued_at, expires_at, revoked_at, replaced_by, device_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		token.ID, token.UserID, token.IssuedAt, token.ExpiresAt,
		token.RevokedAt, token.ReplacedBy, token.DeviceID, token.IPAddress, token.UserAgent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *pgxRefreshTokenRepository) FindByID(ctx context.Context, id string) (*entity.RefreshToken, error) {
	query := `
		SELECT id, user_id, issued_at, expires_at, revoked_at, replaced_by, device_id, ip_address, user_agent
		FROM refresh_tokens
		WHERE id = $1`
	token := &entity.RefreshToken{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&token.ID, &token.UserID, &token.IssuedAt, &token.ExpiresAt,
		&token.RevokedAt, &token.ReplacedBy, &token.DeviceID, &token.IPAddress, &token.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token by id: %w", err)
	}
	return token, nil
}

func (r *pgxRefreshTokenRepository) FindActiveByUserID(ctx context.Context, userID int64) ([]*entity.RefreshToken, error) {
	query := `
		SELECT id, user_id, issued_at, expires_at, revoked_at, replaced_by, device_id, ip_address, user_agent
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY issued_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*entity.RefreshToken
	for rows.Next() {
		token := &entity.RefreshToken{}
		if err := rows.Scan(
			&token.ID, &token.UserID, &token.IssuedAt, &token.ExpiresAt,
			&token.RevokedAt, &token.ReplacedBy, &token.DeviceID, &token.IPAddress, &token.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating refresh tokens: %w", err)
	}
	return tokens, nil
}

// MarkRevoked is a single conditional write: only an unrevoked row is
// changed, so of two racing revocations exactly one observes true.
func (r *pgxRefreshTokenRepository) MarkRevoked(ctx context.Context, id string, revokedAt time.Time, replacedBy *string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by = $3
		WHERE id = $1 AND revoked_at IS NULL`
	commandTag, err := r.db.Exec(ctx, query, id, revokedAt, replacedBy)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

func (r *pgxRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, excludeID *string, revokedAt time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL AND ($3::text IS NULL OR id <> $3)`
	commandTag, err := r.db.Exec(ctx, query, userID, revokedAt, excludeID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens for user: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

func (r *pgxRefreshTokenRepository) DeleteExpiredAndRevoked(ctx context.Context, revokedRetention time.Duration) (int64, error) {
	// Revoked tokens are kept for the retention window so rotation chains
	// remain reconstructible for a while after revocation.
	cutoff := time.Now().Add(-revokedRetention)
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < now() OR (revoked_at IS NOT NULL AND revoked_at < $1)`
	commandTag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired and revoked refresh tokens: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

var _ repository.RefreshTokenRepository = (*pgxRefreshTokenRepository)(nil)
