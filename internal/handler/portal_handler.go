package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
	"github.com/noah-isme/course-allocation-api/pkg/response"
)

// PortalHandler exposes the student-facing portal endpoints.
type PortalHandler struct {
	portal portalService
}

type portalService interface {
	AvailableCourses(ctx context.Context, semesterID string, page, pageSize int) ([]models.CourseDetail, int, error)
	CheckEligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error)
	Transcript(ctx context.Context, studentID string) (*models.Transcript, error)
	Schedule(ctx context.Context, studentID string) (*models.Schedule, error)
	ExportTranscript(ctx context.Context, studentID, format string) ([]byte, string, error)
}

// NewPortalHandler constructs PortalHandler.
func NewPortalHandler(portal portalService) *PortalHandler {
	return &PortalHandler{portal: portal}
}

// requireStudent resolves the acting student: the caller's own record, or any
// student when staff passes student_id explicitly.
func (h *PortalHandler) requireStudent(c *gin.Context) (string, bool) {
	if isStaff(c) {
		if id := c.Query("student_id"); id != "" {
			return id, true
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return "", false
	}
	id := currentStudentID(c)
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no student record linked to this account"))
		return "", false
	}
	return id, true
}

// AvailableCourses godoc
// @Summary Browse courses open for enrollment
// @Tags portal
// @Security BearerAuth
// @Produce json
// @Param semester_id query string false "Semester, defaults to the active one"
// @Success 200 {object} response.Envelope{data=[]models.CourseDetail}
// @Router /portal/courses [get]
func (h *PortalHandler) AvailableCourses(c *gin.Context) {
	page, pageSize := paginationQuery(c)
	courses, total, err := h.portal.AvailableCourses(c.Request.Context(), c.Query("semester_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, newPagination(page, pageSize, total))
}

// CheckEligibility godoc
// @Summary Evaluate enrollment eligibility for a course
// @Description Reports every unmet requirement, not only the first.
// @Tags portal
// @Security BearerAuth
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope{data=models.EligibilityVerdict}
// @Failure 404 {object} response.Envelope
// @Router /portal/courses/{courseId}/eligibility [get]
func (h *PortalHandler) CheckEligibility(c *gin.Context) {
	studentID, ok := h.requireStudent(c)
	if !ok {
		return
	}
	verdict, err := h.portal.CheckEligibility(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}

// Transcript godoc
// @Summary Get the student's transcript
// @Tags portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=models.Transcript}
// @Router /portal/transcript [get]
func (h *PortalHandler) Transcript(c *gin.Context) {
	studentID, ok := h.requireStudent(c)
	if !ok {
		return
	}
	transcript, err := h.portal.Transcript(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// ExportTranscript godoc
// @Summary Download the transcript as CSV or PDF
// @Tags portal
// @Security BearerAuth
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /portal/transcript/export [get]
func (h *PortalHandler) ExportTranscript(c *gin.Context) {
	studentID, ok := h.requireStudent(c)
	if !ok {
		return
	}
	payload, filename, err := h.portal.ExportTranscript(c.Request.Context(), studentID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if c.Query("format") == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}

// Schedule godoc
// @Summary Get the student's schedule for the active semester
// @Tags portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=models.Schedule}
// @Router /portal/schedule [get]
func (h *PortalHandler) Schedule(c *gin.Context) {
	studentID, ok := h.requireStudent(c)
	if !ok {
		return
	}
	schedule, err := h.portal.Schedule(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
