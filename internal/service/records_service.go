package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

// RecordsService covers the districts/schools/teachers slice of the
// platform: soft-delete CRUD with role-scoped listing and cascade-impact
// reporting before deletion. Every mutation is audited.
type RecordsService struct {
	districts repository.DistrictRepository
	schools   repository.SchoolRepository
	teachers  repository.TeacherRepository
	audit     *AuditLogService
	logger    *zap.Logger
}

// NewRecordsService creates a RecordsService.
func NewRecordsService(
	districts repository.DistrictRepository,
	schools repository.SchoolRepository,
	teachers repository.TeacherRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *RecordsService {
	return &RecordsService{
		districts: districts,
		schools:   schools,
		teachers:  teachers,
		audit:     audit,
		logger:    logger,
	}
}

// scopeFor maps the caller's role onto a row filter: admins see all rows,
// district officers only their district.
func scopeFor(user *entity.User) repository.RecordScope {
	if user.Role == entity.RoleAdmin {
		return repository.RecordScope{}
	}
	return repository.RecordScope{DistrictID: user.DistrictID}
}

// --- Districts ---

func (s *RecordsService) ListDistricts(ctx context.Context, user *entity.User) ([]*entity.District, error) {
	return s.districts.List(ctx, scopeFor(user))
}

func (s *RecordsService) GetDistrict(ctx context.Context, user *entity.User, id int64, actx AuditContext) (*entity.District, error) {
	d, err := s.districts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.RecordView(actx, "district", fmt.Sprintf("%d", id))
	return d, nil
}

func (s *RecordsService) CreateDistrict(ctx context.Context, d *entity.District, actx AuditContext) error {
	if err := s.districts.Create(ctx, d); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordCreated, "district", fmt.Sprintf("%d", d.ID),
		map[string]interface{}{"name": d.Name})
	return nil
}

func (s *RecordsService) UpdateDistrict(ctx context.Context, d *entity.District, actx AuditContext) error {
	if err := s.districts.Update(ctx, d); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordUpdated, "district", fmt.Sprintf("%d", d.ID), nil)
	return nil
}

// DistrictCascadeInfo reports the dependent records a district deletion
// would affect, surfaced to the operator before they confirm.
func (s *RecordsService) DistrictCascadeInfo(ctx context.Context, id int64) (*entity.CascadeInfo, error) {
	if _, err := s.districts.FindByID(ctx, id); err != nil {
		return nil, err
	}
	counts, err := s.districts.CascadeCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildCascadeInfo("district", id, counts), nil
}

func (s *RecordsService) DeleteDistrict(ctx context.Context, id int64, actx AuditContext) error {
	changed, err := s.districts.SoftDelete(ctx, id, time.Now())
	if err != nil {
		return err
	}
	if !changed {
		return domainErrors.ErrNotFound
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordSoftDeleted, "district", fmt.Sprintf("%d", id), nil)
	return nil
}

// --- Schools ---

func (s *RecordsService) ListSchools(ctx context.Context, user *entity.User) ([]*entity.School, error) {
	return s.schools.List(ctx, scopeFor(user))
}

func (s *RecordsService) GetSchool(ctx context.Context, user *entity.User, id int64, actx AuditContext) (*entity.School, error) {
	school, err := s.schools.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := scopeFor(user); scope.DistrictID != nil && school.DistrictID != *scope.DistrictID {
		return nil, domainErrors.ErrForbidden
	}
	s.audit.RecordView(actx, "school", fmt.Sprintf("%d", id))
	return school, nil
}

func (s *RecordsService) CreateSchool(ctx context.Context, school *entity.School, actx AuditContext) error {
	if err := s.schools.Create(ctx, school); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordCreated, "school", fmt.Sprintf("%d", school.ID),
		map[string]interface{}{"name": school.Name, "district_id": school.DistrictID})
	return nil
}

func (s *RecordsService) UpdateSchool(ctx context.Context, school *entity.School, actx AuditContext) error {
	if err := s.schools.Update(ctx, school); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordUpdated, "school", fmt.Sprintf("%d", school.ID), nil)
	return nil
}

func (s *RecordsService) SchoolCascadeInfo(ctx context.Context, id int64) (*entity.CascadeInfo, error) {
	if _, err := s.schools.FindByID(ctx, id); err != nil {
		return nil, err
	}
	counts, err := s.schools.CascadeCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildCascadeInfo("school", id, counts), nil
}

func (s *RecordsService) DeleteSchool(ctx context.Context, id int64, actx AuditContext) error {
	changed, err := s.schools.SoftDelete(ctx, id, time.Now())
	if err != nil {
		return err
	}
	if !changed {
		return domainErrors.ErrNotFound
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordSoftDeleted, "school", fmt.Sprintf("%d", id), nil)
	return nil
}

// --- Teachers ---

func (s *RecordsService) ListTeachers(ctx context.Context, user *entity.User) ([]*entity.Teacher, error) {
	return s.teachers.List(ctx, scopeFor(user))
}

func (s *RecordsService) GetTeacher(ctx context.Context, user *entity.User, id int64, actx AuditContext) (*entity.Teacher, error) {
	t, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.RecordView(actx, "teacher", fmt.Sprintf("%d", id))
	return t, nil
}

func (s *RecordsService) CreateTeacher(ctx context.Context, t *entity.Teacher, actx AuditContext) error {
	if err := s.teachers.Create(ctx, t); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordCreated, "teacher", fmt.Sprintf("%d", t.ID),
		map[string]interface{}{"name": t.Name, "school_id": t.SchoolID})
	return nil
}

func (s *RecordsService) UpdateTeacher(ctx context.Context, t *entity.Teacher, actx AuditContext) error {
	if err := s.teachers.Update(ctx, t); err != nil {
		return err
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordUpdated, "teacher", fmt.Sprintf("%d", t.ID), nil)
	return nil
}

func (s *RecordsService) DeleteTeacher(ctx context.Context, id int64, actx AuditContext) error {
	changed, err := s.teachers.SoftDelete(ctx, id, time.Now())
	if err != nil {
		return err
	}
	if !changed {
		return domainErrors.ErrNotFound
	}
	s.audit.RecordRecordChange(actx, entity.AuditActionRecordSoftDeleted, "teacher", fmt.Sprintf("%d", id), nil)
	return nil
}

func buildCascadeInfo(resourceType string, id int64, counts map[string]int) *entity.CascadeInfo {
	total := 0
	for _, c := range counts {
		total += c
	}
	return &entity.CascadeInfo{
		ResourceType: resourceType,
		ResourceID:   id,
		Dependents:   counts,
		Total:        total,
	}
}
