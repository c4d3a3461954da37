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

// SemesterHandler exposes semester endpoints.
type SemesterHandler struct {
	semesters semesterService
}

type semesterService interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	Get(ctx context.Context, id string) (*models.Semester, error)
	GetActive(ctx context.Context) (*models.Semester, error)
	Create(ctx context.Context, req service.CreateSemesterRequest) (*models.Semester, error)
	Activate(ctx context.Context, id string) (*models.Semester, error)
}

// NewSemesterHandler constructs SemesterHandler.
func NewSemesterHandler(semesters semesterService) *SemesterHandler {
	return &SemesterHandler{semesters: semesters}
}

// List godoc
// @Summary List semesters
// @Tags semesters
// @Security BearerAuth
// @Produce json
// @Param academic_year query string false "Filter by academic year"
// @Success 200 {object} response.Envelope{data=[]models.Semester}
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	page, pageSize := paginationQuery(c)
	filter := models.SemesterFilter{
		AcademicYear: c.Query("academic_year"),
		Page:         page,
		PageSize:     pageSize,
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}

	semesters, total, err := h.semesters.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, newPagination(page, pageSize, total))
}

// GetActive godoc
// @Summary Get the active semester
// @Tags semesters
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope{data=models.Semester}
// @Failure 404 {object} response.Envelope
// @Router /semesters/active [get]
func (h *SemesterHandler) GetActive(c *gin.Context) {
	semester, err := h.semesters.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Get godoc
// @Summary Get a semester
// @Tags semesters
// @Security BearerAuth
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope{data=models.Semester}
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id} [get]
func (h *SemesterHandler) Get(c *gin.Context) {
	semester, err := h.semesters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Create godoc
// @Summary Create a semester
// @Tags semesters
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreateSemesterRequest true "Semester"
// @Success 201 {object} response.Envelope{data=models.Semester}
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req service.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	semester, err := h.semesters.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester)
}

// Activate godoc
// @Summary Make a semester the active term
// @Tags semesters
// @Security BearerAuth
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope{data=models.Semester}
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id}/activate [post]
func (h *SemesterHandler) Activate(c *gin.Context) {
	semester, err := h.semesters.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}
