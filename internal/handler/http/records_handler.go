package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
	"github.com/classbridge/records-admin-service/internal/handler/http/middleware"
	"github.com/classbridge/records-admin-service/internal/service"
)

// RecordsHandler exposes the districts/schools/teachers CRUD. Listing is
// scoped by the caller's role; deletions are preceded by a cascade-info
// endpoint so the client can show the impact before confirming.
type RecordsHandler struct {
	logger  *zap.Logger
	records *service.RecordsService
	users   repository.UserRepository
}

// NewRecordsHandler creates a RecordsHandler.
func NewRecordsHandler(logger *zap.Logger, records *service.RecordsService, users repository.UserRepository) *RecordsHandler {
	return &RecordsHandler{
		logger:  logger.Named("records_handler"),
		records: records,
		users:   users,
	}
}

// currentUser loads the caller's account; the scope filter needs the
// district column, which the token claims do not carry.
func (h *RecordsHandler) currentUser(c *gin.Context) (*entity.User, bool) {
	user, err := h.users.FindByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to load caller account", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to load account", "internal_error", h.logger)
		return nil, false
	}
	return user, true
}

func (h *RecordsHandler) auditContext(c *gin.Context) service.AuditContext {
	return service.AuditContext{
		UserID:    middleware.UserID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// --- Districts ---

type districtRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

func (h *RecordsHandler) ListDistricts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	districts, err := h.records.ListDistricts(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to list districts", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to list districts", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"districts": districts})
}

func (h *RecordsHandler) GetDistrict(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	d, err := h.records.GetDistrict(c.Request.Context(), user, id, h.auditContext(c))
	if err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to load district", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to load district", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, d)
}

func (h *RecordsHandler) CreateDistrict(c *gin.Context) {
	var req districtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	d := &entity.District{Name: req.Name, Code: req.Code}
	if err := h.records.CreateDistrict(c.Request.Context(), d, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to create district", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to create district", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusCreated, d)
}

func (h *RecordsHandler) UpdateDistrict(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	var req districtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	d := &entity.District{ID: id, Name: req.Name, Code: req.Code}
	if err := h.records.UpdateDistrict(c.Request.Context(), d, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to update district", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to update district", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, d)
}

func (h *RecordsHandler) DistrictCascadeInfo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	info, err := h.records.DistrictCascadeInfo(c.Request.Context(), id)
	if err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to compute cascade info", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to compute cascade info", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, info)
}

func (h *RecordsHandler) DeleteDistrict(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	if err := h.records.DeleteDistrict(c.Request.Context(), id, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to delete district", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to delete district", "internal_error", h.logger)
		}
		return
	}
	RespondWithNoContent(c)
}

// --- Schools ---

type schoolRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code" binding:"required"`
	DistrictID int64  `json:"district_id" binding:"required"`
	Village    string `json:"village"`
	SchoolType string `json:"school_type"`
	Management string `json:"management"`
}

func (h *RecordsHandler) ListSchools(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	schools, err := h.records.ListSchools(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to list schools", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to list schools", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"schools": schools})
}

func (h *RecordsHandler) GetSchool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	school, err := h.records.GetSchool(c.Request.Context(), user, id, h.auditContext(c))
	if err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to load school", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to load school", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, school)
}

func (h *RecordsHandler) CreateSchool(c *gin.Context) {
	var req schoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	school := &entity.School{
		Name:       req.Name,
		Code:       req.Code,
		DistrictID: req.DistrictID,
		Village:    req.Village,
		SchoolType: req.SchoolType,
		Management: req.Management,
	}
	if err := h.records.CreateSchool(c.Request.Context(), school, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to create school", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to create school", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusCreated, school)
}

func (h *RecordsHandler) UpdateSchool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	var req schoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	school := &entity.School{
		ID:         id,
		Name:       req.Name,
		Code:       req.Code,
		DistrictID: req.DistrictID,
		Village:    req.Village,
		SchoolType: req.SchoolType,
		Management: req.Management,
	}
	if err := h.records.UpdateSchool(c.Request.Context(), school, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to update school", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to update school", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, school)
}

func (h *RecordsHandler) SchoolCascadeInfo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	info, err := h.records.SchoolCascadeInfo(c.Request.Context(), id)
	if err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to compute cascade info", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to compute cascade info", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, info)
}

func (h *RecordsHandler) DeleteSchool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	if err := h.records.DeleteSchool(c.Request.Context(), id, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to delete school", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to delete school", "internal_error", h.logger)
		}
		return
	}
	RespondWithNoContent(c)
}

// --- Teachers ---

type teacherRequest struct {
	Name        string `json:"name" binding:"required"`
	SchoolID    int64  `json:"school_id" binding:"required"`
	Designation string `json:"designation"`
	Subject     string `json:"subject"`
	JoinedAt    string `json:"joined_at"`
}

func (r teacherRequest) toEntity(id int64) (*entity.Teacher, error) {
	t := &entity.Teacher{
		ID:          id,
		Name:        r.Name,
		SchoolID:    r.SchoolID,
		Designation: r.Designation,
		Subject:     r.Subject,
	}
	if r.JoinedAt != "" {
		joined, err := time.Parse("2006-01-02", r.JoinedAt)
		if err != nil {
			return nil, err
		}
		t.JoinedAt = &joined
	}
	return t, nil
}

func (h *RecordsHandler) ListTeachers(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	teachers, err := h.records.ListTeachers(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to list teachers", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to list teachers", "internal_error", h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"teachers": teachers})
}

func (h *RecordsHandler) GetTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	t, err := h.records.GetTeacher(c.Request.Context(), user, id, h.auditContext(c))
	if err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to load teacher", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to load teacher", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, t)
}

func (h *RecordsHandler) CreateTeacher(c *gin.Context) {
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	t, err := req.toEntity(0)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid joined_at date", "invalid_request", h.logger)
		return
	}
	if err := h.records.CreateTeacher(c.Request.Context(), t, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to create teacher", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to create teacher", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusCreated, t)
}

func (h *RecordsHandler) UpdateTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", "invalid_request", h.logger)
		return
	}
	t, err := req.toEntity(id)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid joined_at date", "invalid_request", h.logger)
		return
	}
	if err := h.records.UpdateTeacher(c.Request.Context(), t, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to update teacher", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to update teacher", "internal_error", h.logger)
		}
		return
	}
	RespondWithData(c, http.StatusOK, t)
}

func (h *RecordsHandler) DeleteTeacher(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		RespondWithError(c, http.StatusBadRequest, "Invalid id", "invalid_request", h.logger)
		return
	}
	if err := h.records.DeleteTeacher(c.Request.Context(), id, h.auditContext(c)); err != nil {
		if !respondDomainError(c, err, h.logger) {
			h.logger.Error("Failed to delete teacher", zap.Error(err))
			RespondWithError(c, http.StatusInternalServerError, "Failed to delete teacher", "internal_error", h.logger)
		}
		return
	}
	RespondWithNoContent(c)
}
