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

// EnrollmentHandler exposes the enrollment ledger and its transitions.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	Drop(ctx context.Context, id string) (*models.Enrollment, error)
	Complete(ctx context.Context, id string, req service.CompleteEnrollmentRequest) (*models.Enrollment, error)
	Withdraw(ctx context.Context, id string) (*models.Enrollment, error)
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags enrollments
// @Security BearerAuth
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope{data=[]models.EnrollmentDetail}
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	page, pageSize := paginationQuery(c)
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.EnrollmentStatus(c.Query("status")),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	// Students only see their own rows.
	if !isStaff(c) {
		filter.StudentID = currentStudentID(c)
	}

	enrollments, total, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, newPagination(page, pageSize, total))
}

// Get godoc
// @Summary Get an enrollment
// @Tags enrollments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isStaff(c) && enrollment.StudentID != currentStudentID(c) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student"))
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Drop godoc
// @Summary Drop an enrollment, freeing the seat
// @Tags enrollments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	if err := h.authorize(c); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Drop(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Complete godoc
// @Summary Complete an enrollment with a final grade
// @Tags enrollments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param request body service.CompleteEnrollmentRequest true "Final grade"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	var req service.CompleteEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	enrollment, err := h.enrollments.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Withdraw godoc
// @Summary Withdraw from an enrollment
// @Tags enrollments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	if err := h.authorize(c); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// authorize lets staff act on any enrollment and students only on their own.
func (h *EnrollmentHandler) authorize(c *gin.Context) error {
	if isStaff(c) {
		return nil
	}
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if enrollment.StudentID != currentStudentID(c) {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return nil
}
