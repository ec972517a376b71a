package entity

import (
	"time"
)

// District represents an administrative district, mapping to the
// "districts" table. Soft deleted via deleted_at.
type District struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Code      string     `db:"code"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// School represents a school, mapping to the "schools" table.
type School struct {
	ID         int64      `db:"id"`
	Name       string     `db:"name"`
	Code       string     `db:"code"`
	DistrictID int64      `db:"district_id"`
	Village    string     `db:"village"`
	SchoolType string     `db:"school_type"`
	Management string     `db:"management"`
	DeletedAt  *time.Time `db:"deleted_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// Teacher represents a teacher record, mapping to the "teachers" table.
type Teacher struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	SchoolID    int64      `db:"school_id"`
	Designation string     `db:"designation"`
	Subject     string     `db:"subject"`
	JoinedAt    *time.Time `db:"joined_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// CascadeInfo reports how many dependent records a deletion would
// affect, returned to the caller before a destructive operation.
type CascadeInfo struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   int64          `json:"resource_id"`
	Dependents   map[string]int `json:"dependents"`
	Total        int            `json:"total"`
}
