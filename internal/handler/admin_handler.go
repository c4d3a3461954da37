package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/internal/service"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
	"github.com/noah-isme/course-allocation-api/pkg/response"
)

// AdminHandler exposes privileged override and statistics endpoints.
type AdminHandler struct {
	admin adminService
	audit auditReader
}

type adminService interface {
	ForceEnroll(ctx context.Context, actorID string, req service.ForceEnrollRequest) (*models.Enrollment, error)
	ForceDrop(ctx context.Context, actorID, enrollmentID, reason string) (*models.Enrollment, error)
	UpdateEmergencyCapacity(ctx context.Context, actorID, courseID string, req service.EmergencyCapacityRequest) (*models.Course, error)
	Statistics(ctx context.Context) (*models.SystemStatistics, error)
}

type auditReader interface {
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error)
}

type forceDropRequest struct {
	Reason string `json:"reason"`
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin adminService, audit auditReader) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit}
}

// ForceEnroll godoc
// @Summary Force-enroll a student
// @Description Bypasses capacity and prerequisites when requested; the course
// @Description version check still applies.
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.ForceEnrollRequest true "Placement"
// @Success 201 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/force-enroll [post]
func (h *AdminHandler) ForceEnroll(c *gin.Context) {
	var req service.ForceEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	enrollment, err := h.admin.ForceEnroll(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ForceDrop godoc
// @Summary Force-drop an enrollment
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param request body forceDropRequest true "Reason"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Router /admin/enrollments/{id}/force-drop [post]
func (h *AdminHandler) ForceDrop(c *gin.Context) {
	var req forceDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	enrollment, err := h.admin.ForceDrop(c.Request.Context(), currentUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateCapacity godoc
// @Summary Emergency capacity change
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param request body service.EmergencyCapacityRequest true "New capacity"
// @Success 200 {object} response.Envelope{data=models.Course}
// @Failure 409 {object} response.Envelope
// @Router /admin/courses/{id}/capacity [put]
func (h *AdminHandler) UpdateCapacity(c *gin.Context) {
	var req service.EmergencyCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	course, err := h.admin.UpdateEmergencyCapacity(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Statistics godoc
// @Summary System statistics
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=models.SystemStatistics}
// @Router /admin/statistics [get]
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.admin.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// AuditTrail godoc
// @Summary Audit entries for an entity
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param entity_type query string true "Entity type"
// @Param entity_id query string true "Entity ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope{data=[]models.AuditLog}
// @Router /admin/audit [get]
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "entity_type and entity_id are required"))
		return
	}

	entries, err := h.audit.ListByEntity(c.Request.Context(), entityType, entityID, queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
