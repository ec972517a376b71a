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

func mapPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domainErrors.ErrAlreadyExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- Districts ---

type pgxDistrictRepository struct {
	db *pgxpool.Pool
}

// NewPgxDistrictRepository creates a new pgx-backed district store.
func NewPgxDistrictRepository(db *pgxpool.Pool) repository.DistrictRepository {
	return &pgxDistrictRepository{db: db}
}

func (r *pgxDistrictRepository) Create(ctx context.Context, d *entity.District) error {
	query := `
		INSERT INTO districts (name, code, created_at, updated_at)
		VALUES ($1, $2, now(), now()) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, d.Name, d.Code).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapPgError(err, "failed to create district")
	}
	return nil
}

func (r *pgxDistrictRepository) FindByID(ctx context.Context, id int64) (*entity.District, error) {
	query := `SELECT id, name, code, deleted_at, created_at, updated_at FROM districts WHERE id = $1 AND deleted_at IS NULL`
	d := &entity.District{}
	err := r.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Code, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find district: %w", err)
	}
	return d, nil
}

func (r *pgxDistrictRepository) List(ctx context.Context, scope repository.RecordScope) ([]*entity.District, error) {
	query := `
		SELECT id, name, code, deleted_at, created_at, updated_at
		FROM districts
		WHERE deleted_at IS NULL AND ($1::bigint IS NULL OR id = $1)
		ORDER BY name`
	rows, err := r.db.Query(ctx, query, scope.DistrictID)
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	defer rows.Close()

	var out []*entity.District
	for rows.Next() {
		d := &entity.District{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan district: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *pgxDistrictRepository) Update(ctx context.Context, d *entity.District) error {
	query := `UPDATE districts SET name = $2, code = $3, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	commandTag, err := r.db.Exec(ctx, query, d.ID, d.Name, d.Code)
	if err != nil {
		return mapPgError(err, "failed to update district")
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxDistrictRepository) SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error) {
	commandTag, err := r.db.Exec(ctx,
		`UPDATE districts SET deleted_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete district: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

func (r *pgxDistrictRepository) CascadeCounts(ctx context.Context, id int64) (map[string]int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM schools s WHERE s.district_id = $1 AND s.deleted_at IS NULL),
			(SELECT COUNT(*) FROM teachers t JOIN schools s ON t.school_id = s.id
			 WHERE s.district_id = $1 AND t.deleted_at IS NULL AND s.deleted_at IS NULL)`
	var schools, teachers int
	if err := r.db.QueryRow(ctx, query, id).Scan(&schools, &teachers); err != nil {
		return nil, fmt.Errorf("failed to compute district cascade counts: %w", err)
	}
	return map[string]int{"schools": schools, "teachers": teachers}, nil
}

// --- Schools ---

type pgxSchoolRepository struct {
	db *pgxpool.Pool
}

// NewPgxSchoolRepository creates a new pgx-backed school store.
func NewPgxSchoolRepository(db *pgxpool.Pool) repository.SchoolRepository {
	return &pgxSchoolRepository{db: db}
}

const schoolColumns = `id, name, code, district_id, village, school_type, management, deleted_at, created_at, updated_at`

func scanSchool(row pgx.Row) (*entity.School, error) {
	s := &entity.School{}
	err := row.Scan(&s.ID, &s.Name, &s.Code, &s.DistrictID, &s.Village, &s.SchoolType,
		&s.Management, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan school: %w", err)
	}
	return s, nil
}

func (r *pgxSchoolRepository) Create(ctx context.Context, s *entity.School) error {
	query := `
		INSERT INTO schools (name, code, district_id, village, school_type, management, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now()) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, s.Name, s.Code, s.DistrictID, s.Village, s.SchoolType, s.Management).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapPgError(err, "failed to create school")
	}
	return nil
}

func (r *pgxSchoolRepository) FindByID(ctx context.Context, id int64) (*entity.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1 AND deleted_at IS NULL`
	return scanSchool(r.db.QueryRow(ctx, query, id))
}

func (r *pgxSchoolRepository) List(ctx context.Context, scope repository.RecordScope) ([]*entity.School, error) {
	query := `
		SELECT ` + schoolColumns + `
		FROM schools
		WHERE deleted_at IS NULL AND ($1::bigint IS NULL OR district_id = $1)
		ORDER BY name`
	rows, err := r.db.Query(ctx, query, scope.DistrictID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var out []*entity.School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgxSchoolRepository) Update(ctx context.Context, s *entity.School) error {
	query := `
		UPDATE schools SET name = $2, code = $3, district_id = $4, village = $5, school_type = $6, management = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`
	commandTag, err := r.db.Exec(ctx, query, s.ID, s.Name, s.Code, s.DistrictID, s.Village, s.SchoolType, s.Management)
	if err != nil {
		return mapPgError(err, "failed to update school")
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxSchoolRepository) SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error) {
	commandTag, err := r.db.Exec(ctx,
		`UPDATE schools SET deleted_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete school: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

func (r *pgxSchoolRepository) CascadeCounts(ctx context.Context, id int64) (map[string]int, error) {
	var teachers int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM teachers WHERE school_id = $1 AND deleted_at IS NULL`, id).Scan(&teachers)
	if err != nil {
		return nil, fmt.Errorf("failed to compute school cascade counts: %w", err)
	}
	return map[string]int{"teachers": teachers}, nil
}

// --- Teachers ---

type pgxTeacherRepository struct {
	db *pgxpool.Pool
}

// NewPgxTeacherRepository creates a new pgx-backed teacher store.
func NewPgxTeacherRepository(db *pgxpool.Pool) repository.TeacherRepository {
	return &pgxTeacherRepository{db: db}
}

const teacherColumns = `id, name, school_id, designation, subject, joined_at, deleted_at, created_at, updated_at`

func scanTeacher(row pgx.Row) (*entity.Teacher, error) {
	t := &entity.Teacher{}
	err := row.Scan(&t.ID, &t.Name, &t.SchoolID, &t.Designation, &t.Subject,
		&t.JoinedAt, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan teacher: %w", err)
	}
	return t, nil
}

func (r *pgxTeacherRepository) Create(ctx context.Context, t *entity.Teacher) error {
	query := `
		INSERT INTO teachers (name, school_id, designation, subject, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now()) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, t.Name, t.SchoolID, t.Designation, t.Subject, t.JoinedAt).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapPgError(err, "failed to create teacher")
	}
	return nil
}

func (r *pgxTeacherRepository) FindByID(ctx context.Context, id int64) (*entity.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1 AND deleted_at IS NULL`
	return scanTeacher(r.db.QueryRow(ctx, query, id))
}

func (r *pgxTeacherRepository) List(ctx context.Context, scope repository.RecordScope) ([]*entity.Teacher, error) {
	query := `
		SELECT t.id, t.name, t.school_id, t.designation, t.subject, t.joined_at, t.deleted_at, t.created_at, t.updated_at
		FROM teachers t
		JOIN schools s ON t.school_id = s.id
		WHERE t.deleted_at IS NULL AND ($1::bigint IS NULL OR s.district_id = $1)
		ORDER BY t.name`
	rows, err := r.db.Query(ctx, query, scope.DistrictID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	var out []*entity.Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *pgxTeacherRepository) Update(ctx context.Context, t *entity.Teacher) error {
	query := `
		UPDATE teachers SET name = $2, school_id = $3, designation = $4, subject = $5, joined_at = $6, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`
	commandTag, err := r.db.Exec(ctx, query, t.ID, t.Name, t.SchoolID, t.Designation, t.Subject, t.JoinedAt)
	if err != nil {
		return mapPgError(err, "failed to update teacher")
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxTeacherRepository) SoftDelete(ctx context.Context, id int64, at time.Time) (bool, error) {
	commandTag, err := r.db.Exec(ctx,
		`UPDATE teachers SET deleted_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete teacher: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

var (
	_ repository.DistrictRepository = (*pgxDistrictRepository)(nil)
	_ repository.SchoolRepository   = (*pgxSchoolRepository)(nil)
	_ repository.TeacherRepository  = (*pgxTeacherRepository)(nil)
)
