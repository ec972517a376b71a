package repository

import (
	"context"
	"time"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
)

// RecordScope restricts listings by role. A nil DistrictID means no
// restriction (admin).
type RecordScope struct {
	DistrictID *int64
}

// DistrictRepository persists districts with soft delete.
type DistrictRepository interface {
	Create(ctx context.Context, d *entity.District) error
	FindByID(ctx context.Context, id int64) (*entity.District, error)
	List(ctx context.Context, scope RecordScope) ([]*entity.District, error)
	Update(ctx context.Context, d *entity.District) error
	SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error)
	// CascadeCounts returns counts of dependent schools and teachers.
	CascadeCounts(ctx context.Context, id int64) (map[string]int, error)
}

// SchoolRepository persists schools with soft delete.
type SchoolRepository interface {
	Create(ctx context.Context, s *entity.School) error
	FindByID(ctx context.Context, id int64) (*entity.School, error)
	List(ctx context.Context, scope RecordScope) ([]*entity.School, error)
	Update(ctx context.Context, s *entity.School) error
	SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error)
	CascadeCounts(ctx context.Context, id int64) (map[string]int, error)
}

// TeacherRepository persists teacher records with soft delete.
type TeacherRepository interface {
	Create(ctx context.Context, t *entity.Teacher) error
	FindByID(ctx context.Context, id int64) (*entity.Teacher, error)
	List(ctx context.Context, scope RecordScope) ([]*entity.Teacher, error)
	Update(ctx context.Context, t *entity.Teacher) error
	SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error)
}
