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

// CourseHandler exposes course catalog and requirement endpoints.
type CourseHandler struct {
	courses courseService
}

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Get(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error)
	ListRequirements(ctx context.Context, courseID string) ([]models.RequirementDetail, error)
	AddRequirement(ctx context.Context, courseID, actorID string, req service.CreateRequirementRequest) (*models.CourseRequirement, error)
	RemoveRequirement(ctx context.Context, courseID, requirementID string) error
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param semester_id query string false "Filter by semester"
// @Param department_id query string false "Filter by department"
// @Param status query string false "Filter by status"
// @Param level query int false "Filter by level"
// @Param search query string false "Search code or title"
// @Success 200 {object} response.Envelope{data=[]models.CourseDetail}
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	page, pageSize := paginationQuery(c)
	filter := models.CourseFilter{
		SemesterID:   c.Query("semester_id"),
		DepartmentID: c.Query("department_id"),
		Status:       models.CourseStatus(c.Query("status")),
		Level:        queryInt(c, "level", 0),
		Search:       c.Query("search"),
		Page:         page,
		PageSize:     pageSize,
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}

	courses, total, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, newPagination(page, pageSize, total))
}

// Get godoc
// @Summary Get a course with its derived seat count
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope{data=models.CourseDetail}
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create a course
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope{data=models.Course}
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param request body service.UpdateCourseRequest true "Course"
// @Success 200 {object} response.Envelope{data=models.Course}
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListRequirements godoc
// @Summary List a course's requirements
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope{data=[]models.RequirementDetail}
// @Router /courses/{id}/requirements [get]
func (h *CourseHandler) ListRequirements(c *gin.Context) {
	requirements, err := h.courses.ListRequirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requirements, nil)
}

// AddRequirement godoc
// @Summary Attach a requirement to a course
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param request body service.CreateRequirementRequest true "Requirement"
// @Success 201 {object} response.Envelope{data=models.CourseRequirement}
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/requirements [post]
func (h *CourseHandler) AddRequirement(c *gin.Context) {
	var req service.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	requirement, err := h.courses.AddRequirement(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, requirement)
}

// RemoveRequirement godoc
// @Summary Detach a requirement from a course
// @Tags courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param requirementId path string true "Requirement ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/requirements/{requirementId} [delete]
func (h *CourseHandler) RemoveRequirement(c *gin.Context) {
	if err := h.courses.RemoveRequirement(c.Request.Context(), c.Param("id"), c.Param("requirementId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
