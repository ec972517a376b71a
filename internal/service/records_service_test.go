package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	domainErrors "github.com/classbridge/records-admin-service/internal/domain/errors"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

// memDistrictRepo is an in-memory DistrictRepository.
type memDistrictRepo struct {
	mu        sync.Mutex
	nextID    int64
	districts map[int64]*entity.District
	schools   *memSchoolRepo
}

func newMemDistrictRepo(schools *memSchoolRepo) *memDistrictRepo {
	return &memDistrictRepo{nextID: 1, districts: make(map[int64]*entity.District), schools: schools}
}

func (r *memDistrictRepo) Create(_ context.Context, d *entity.District) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID
	r.nextID++
	cp := *d
	r.districts[d.ID] = &cp
	return nil
}

func (r *memDistrictRepo) FindByID(_ context.Context, id int64) (*entity.District, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.districts[id]
	if !ok || d.DeletedAt != nil {
		return nil, domainErrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDistrictRepo) List(_ context.Context, scope repository.RecordScope) ([]*entity.District, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.District
	for _, d := range r.districts {
		if d.DeletedAt != nil {
			continue
		}
		if scope.DistrictID != nil && d.ID != *scope.DistrictID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memDistrictRepo) Update(_ context.Context, d *entity.District) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.districts[d.ID]
	if !ok || existing.DeletedAt != nil {
		return domainErrors.ErrNotFound
	}
	existing.Name = d.Name
	existing.Code = d.Code
	return nil
}

func (r *memDistrictRepo) SoftDelete(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.districts[id]
	if !ok || d.DeletedAt != nil {
		return false, nil
	}
	d.DeletedAt = &at
	return true, nil
}

func (r *memDistrictRepo) CascadeCounts(_ context.Context, id int64) (map[string]int, error) {
	schools := 0
	if r.schools != nil {
		r.schools.mu.Lock()
		for _, s := range r.schools.schools {
			if s.DistrictID == id && s.DeletedAt == nil {
				schools++
			}
		}
		r.schools.mu.Unlock()
	}
	return map[string]int{"schools": schools}, nil
}

// memSchoolRepo is an in-memory SchoolRepository.
type memSchoolRepo struct {
	mu      sync.Mutex
	nextID  int64
	schools map[int64]*entity.School
}

func newMemSchoolRepo() *memSchoolRepo {
	return &memSchoolRepo{nextID: 1, schools: make(map[int64]*entity.School)}
}

func (r *memSchoolRepo) Create(_ context.Context, s *entity.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	cp := *s
	r.schools[s.ID] = &cp
	return nil
}

func (r *memSchoolRepo) FindByID(_ context.Context, id int64) (*entity.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schools[id]
	if !ok || s.DeletedAt != nil {
		return nil, domainErrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSchoolRepo) List(_ context.Context, scope repository.RecordScope) ([]*entity.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.School
	for _, s := range r.schools {
		if s.DeletedAt != nil {
			continue
		}
		if scope.DistrictID != nil && s.DistrictID != *scope.DistrictID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSchoolRepo) Update(_ context.Context, s *entity.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.schools[s.ID]
	if !ok || existing.DeletedAt != nil {
		return domainErrors.ErrNotFound
	}
	existing.Name = s.Name
	return nil
}

func (r *memSchoolRepo) SoftDelete(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schools[id]
	if !ok || s.DeletedAt != nil {
		return false, nil
	}
	s.DeletedAt = &at
	return true, nil
}

func (r *memSchoolRepo) CascadeCounts(_ context.Context, id int64) (map[string]int, error) {
	return map[string]int{"teachers": 0}, nil
}

func newRecordsFixture() (*RecordsService, *memDistrictRepo, *memSchoolRepo, *countingSink) {
	sink := &countingSink{}
	queue := NewAuditQueue(sink, AuditQueueOptions{ProcessingInterval: time.Millisecond}, nil, zap.NewNop())
	audit := NewAuditLogService(queue, nil, 0, zap.NewNop())

	schools := newMemSchoolRepo()
	districts := newMemDistrictRepo(schools)
	svc := NewRecordsService(districts, schools, nil, audit, zap.NewNop())
	return svc, districts, schools, sink
}

func admin() *entity.User {
	return &entity.User{ID: 1, Role: entity.RoleAdmin}
}

func districtOfficer(districtID int64) *entity.User {
	return &entity.User{ID: 2, Role: entity.RoleDistrictOfficer, DistrictID: &districtID}
}

func TestListSchools_ScopedByRole(t *testing.T) {
	svc, _, schools, _ := newRecordsFixture()
	ctx := context.Background()
	actx := AuditContext{UserID: 1}

	d1 := &entity.District{Name: "North", Code: "N"}
	d2 := &entity.District{Name: "South", Code: "S"}
	require.NoError(t, svc.CreateDistrict(ctx, d1, actx))
	require.NoError(t, svc.CreateDistrict(ctx, d2, actx))

	require.NoError(t, schools.Create(ctx, &entity.School{Name: "A", DistrictID: d1.ID}))
	require.NoError(t, schools.Create(ctx, &entity.School{Name: "B", DistrictID: d2.ID}))

	all, err := svc.ListSchools(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := svc.ListSchools(ctx, districtOfficer(d1.ID))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "A", scoped[0].Name)
}

func TestGetSchool_ForeignDistrictForbidden(t *testing.T) {
	svc, _, schools, _ := newRecordsFixture()
	ctx := context.Background()

	school := &entity.School{Name: "A", DistrictID: 5}
	require.NoError(t, schools.Create(ctx, school))

	_, err := svc.GetSchool(ctx, districtOfficer(9), school.ID, AuditContext{UserID: 2})
	assert.ErrorIs(t, err, domainErrors.ErrForbidden)

	got, err := svc.GetSchool(ctx, districtOfficer(5), school.ID, AuditContext{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, school.ID, got.ID)
}

func TestDistrictCascadeInfo(t *testing.T) {
	svc, _, schools, _ := newRecordsFixture()
	ctx := context.Background()
	actx := AuditContext{UserID: 1}

	d := &entity.District{Name: "North", Code: "N"}
	require.NoError(t, svc.CreateDistrict(ctx, d, actx))
	require.NoError(t, schools.Create(ctx, &entity.School{Name: "A", DistrictID: d.ID}))
	require.NoError(t, schools.Create(ctx, &entity.School{Name: "B", DistrictID: d.ID}))

	info, err := svc.DistrictCascadeInfo(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "district", info.ResourceType)
	assert.Equal(t, d.ID, info.ResourceID)
	assert.Equal(t, 2, info.Dependents["schools"])
	assert.Equal(t, 2, info.Total)

	_, err = svc.DistrictCascadeInfo(ctx, 999)
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestDeleteDistrict_SoftDelete(t *testing.T) {
	svc, districts, _, sink := newRecordsFixture()
	ctx := context.Background()
	actx := AuditContext{UserID: 1}

	d := &entity.District{Name: "North", Code: "N"}
	require.NoError(t, svc.CreateDistrict(ctx, d, actx))
	require.NoError(t, svc.DeleteDistrict(ctx, d.ID, actx))

	// Row still exists but is hidden from reads.
	_, err := districts.FindByID(ctx, d.ID)
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)

	// Deleting again reports not found.
	err = svc.DeleteDistrict(ctx, d.ID, actx)
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)

	// Create and soft-delete are both audited.
	waitFor(t, func() bool { return sink.storedCount() == 2 })
	actions := make(map[string]bool)
	for _, entry := range sink.storedSnapshot() {
		actions[entry.Action] = true
	}
	assert.True(t, actions[entity.AuditActionRecordCreated])
	assert.True(t, actions[entity.AuditActionRecordSoftDeleted])
}
