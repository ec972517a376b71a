package entity

import (
	"time"
)

// User roles. Role-permission tables are out of scope; the role column
// alone drives row filtering and admin gating.
const (
	RoleAdmin           = "admin"
	RoleDistrictOfficer = "district_officer"
	RoleSchoolAdmin     = "school_admin"
)

// User represents an account in the "users" table.
type User struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	FullName     string     `db:"full_name"`
	Role         string     `db:"role"`
	DistrictID   *int64     `db:"district_id"` // Nullable, scope for district officers
	IsActive     bool       `db:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at"` // Nullable
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
