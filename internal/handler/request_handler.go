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

// RequestHandler exposes the enrollment request workflow.
type RequestHandler struct {
	requests requestService
}

type requestService interface {
	Submit(ctx context.Context, req service.SubmitRequestRequest) (*models.RequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	Get(ctx context.Context, id string) (*models.RequestDetail, error)
	Process(ctx context.Context, id, actorID string, req service.ProcessRequestRequest) (*models.RequestDetail, error)
	BulkApprove(ctx context.Context, actorID string, req service.BulkApproveRequest) []models.RequestOutcome
	Cancel(ctx context.Context, id, studentID string) (*models.RequestDetail, error)
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests requestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Submit godoc
// @Summary Submit an enrollment request
// @Tags requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.SubmitRequestRequest true "Request"
// @Success 201 {object} response.Envelope{data=models.RequestDetail}
// @Failure 409 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req service.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	// Students submit for themselves regardless of the payload.
	if !isStaff(c) {
		req.StudentID = currentStudentID(c)
	}

	request, err := h.requests.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List enrollment requests
// @Tags requests
// @Security BearerAuth
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope{data=[]models.RequestDetail}
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	page, pageSize := paginationQuery(c)
	filter := models.RequestFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.RequestStatus(c.Query("status")),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if !isStaff(c) {
		filter.StudentID = currentStudentID(c)
	}

	requests, total, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, newPagination(page, pageSize, total))
}

// Get godoc
// @Summary Get an enrollment request
// @Tags requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope{data=models.RequestDetail}
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isStaff(c) && request.StudentID != currentStudentID(c) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student"))
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Process godoc
// @Summary Decide an enrollment request
// @Description Approving re-checks eligibility and claims a seat; a full
// @Description course surfaces CAPACITY_EXCEEDED so the caller can waitlist.
// @Tags requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body service.ProcessRequestRequest true "Decision"
// @Success 200 {object} response.Envelope{data=models.RequestDetail}
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /requests/{id}/process [post]
func (h *RequestHandler) Process(c *gin.Context) {
	var req service.ProcessRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	request, err := h.requests.Process(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// BulkApprove godoc
// @Summary Approve a batch of requests
// @Tags requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.BulkApproveRequest true "Request IDs"
// @Success 200 {object} response.Envelope{data=[]models.RequestOutcome}
// @Router /requests/bulk-approve [post]
func (h *RequestHandler) BulkApprove(c *gin.Context) {
	var req service.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	outcomes := h.requests.BulkApprove(c.Request.Context(), currentUserID(c), req)
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// Cancel godoc
// @Summary Cancel a pending request
// @Tags requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope{data=models.RequestDetail}
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	studentID := ""
	if !isStaff(c) {
		studentID = currentStudentID(c)
	}
	request, err := h.requests.Cancel(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
