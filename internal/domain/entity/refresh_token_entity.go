package entity

import (
	"time"
)

// RefreshToken represents a long-lived session credential,
// mapping to the "refresh_tokens" table. The token value itself
// is the primary key; rows are mutated only to set revoked_at and
// replaced_by, forming an auditable rotation chain.
type RefreshToken struct {
	ID         string     `db:"id"`
	UserID     int64      `db:"user_id"`
	IssuedAt   time.Time  `db:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	RevokedAt  *time.Time `db:"revoked_at"`  // Nullable
	ReplacedBy *string    `db:"replaced_by"` // Nullable, successor token id after rotation
	DeviceID   *string    `db:"device_id"`   // Nullable
	IPAddress  *string    `db:"ip_address"`  // Nullable
	UserAgent  *string    `db:"user_agent"`  // Nullable
}

// IsExpired reports whether the token's lifetime has passed.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsActive reports whether the token is still valid for rotation:
// not revoked and not expired.
func (t *RefreshToken) IsActive() bool {
	return t.RevokedAt == nil && !t.IsExpired()
}
