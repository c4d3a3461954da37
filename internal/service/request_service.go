package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type requestStore interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error)
	ExistsOpen(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, request *models.EnrollmentRequest) error
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, rejectionReason *string, processedAt time.Time) error
}

type requestStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type requestCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type requestEnrollmentReader interface {
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type eligibilityEvaluator interface {
	Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error)
}

type seatClaimer interface {
	ClaimSeat(ctx context.Context, studentID, courseID string, opts ClaimOptions) (*models.Enrollment, error)
}

type auditRecorder interface {
	Record(entry models.AuditLog)
}

// SubmitRequestRequest is the payload for submitting an enrollment request.
type SubmitRequestRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	CourseID  string `json:"course_id" validate:"required,uuid4"`
	Reason    string `json:"reason" validate:"max=500"`
}

// ProcessRequestRequest is the payload for deciding a request.
type ProcessRequestRequest struct {
	Status models.RequestStatus `json:"status" validate:"required,oneof=APPROVED REJECTED WAITLISTED"`
	Reason string               `json:"reason" validate:"max=500"`
}

// BulkApproveRequest names the requests to approve in one sweep.
type BulkApproveRequest struct {
	RequestIDs []string `json:"request_ids" validate:"required,min=1,max=100,dive,uuid4"`
}

// RequestService runs the enrollment request workflow. Requests move
// PENDING -> APPROVED | REJECTED | WAITLISTED | CANCELLED; WAITLISTED stays
// open for another decision, the rest are final. Approval re-evaluates
// eligibility at decision time and claims the seat through the allocator, so
// a stale request can never bypass capacity.
type RequestService struct {
	requests    requestStore
	students    requestStudentReader
	courses     requestCourseReader
	enrollments requestEnrollmentReader
	eligibility eligibilityEvaluator
	allocator   seatClaimer
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRequestService constructs RequestService. audit may be nil.
func NewRequestService(requests requestStore, students requestStudentReader, courses requestCourseReader, enrollments requestEnrollmentReader, eligibility eligibilityEvaluator, allocator seatClaimer, audit auditRecorder, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:    requests,
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		eligibility: eligibility,
		allocator:   allocator,
		audit:       audit,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Submit files a new PENDING request for the pair. At most one open request
// per (student, course) is allowed, and an existing enrollment row blocks a
// new request outright.
func (s *RequestService) Submit(ctx context.Context, req SubmitRequestRequest) (*models.RequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("course %s is not open for enrollment", course.Code))
	}

	open, err := s.requests.ExistsOpen(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open requests")
	}
	if open {
		return nil, appErrors.ErrDuplicateRequest
	}
	enrolled, err := s.enrollments.ExistsByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.ErrAlreadyEnrolled
	}

	request := &models.EnrollmentRequest{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		Status:        models.RequestStatusPending,
		RequestReason: strings.TrimSpace(req.Reason),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logger.Info("enrollment request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID))
	return s.detail(ctx, request.ID)
}

// List returns requests matching the filter along with the total count.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, total, nil
}

// Get returns one request with display context.
func (s *RequestService) Get(ctx context.Context, id string) (*models.RequestDetail, error) {
	return s.detail(ctx, id)
}

// Process decides an open request. On approval eligibility is re-checked and
// the seat is claimed; the request keeps its current status whenever the
// claim or the checks fail, so the decision can be retried or downgraded to a
// waitlist without losing the request.
func (s *RequestService) Process(ctx context.Context, id, actorID string, req ProcessRequestRequest) (*models.RequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("request is already %s", request.Status))
	}
	if request.Status == req.Status {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("request is already %s", request.Status))
	}

	switch req.Status {
	case models.RequestStatusApproved:
		if err := s.approve(ctx, request); err != nil {
			return nil, err
		}
	case models.RequestStatusRejected:
		reason := strings.TrimSpace(req.Reason)
		var rejection *string
		if reason != "" {
			rejection = &reason
		}
		if err := s.requests.UpdateStatus(ctx, request.ID, models.RequestStatusRejected, rejection, time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
		}
	case models.RequestStatusWaitlisted:
		if err := s.requests.UpdateStatus(ctx, request.ID, models.RequestStatusWaitlisted, nil, time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
		}
	}

	if s.audit != nil {
		s.audit.Record(models.AuditLog{
			ActorID:    actorID,
			Action:     models.AuditActionRequestDecision,
			EntityType: "enrollment_request",
			EntityID:   request.ID,
			Detail:     fmt.Sprintf("%s -> %s", request.Status, req.Status),
		})
	}
	s.logger.Info("enrollment request processed",
		zap.String("request_id", request.ID),
		zap.String("from", string(request.Status)),
		zap.String("to", string(req.Status)),
		zap.String("actor_id", actorID))
	return s.detail(ctx, request.ID)
}

// approve runs the eligibility evaluation and the seat claim. Seat
// availability is left to the allocator so a full course surfaces as
// CAPACITY_EXCEEDED rather than a generic eligibility failure.
func (s *RequestService) approve(ctx context.Context, request *models.EnrollmentRequest) error {
	verdict, err := s.eligibility.Evaluate(ctx, request.StudentID, request.CourseID)
	if err != nil {
		return err
	}
	if verdict.AlreadyEnrolled {
		return appErrors.ErrAlreadyEnrolled
	}
	if !verdict.RequirementsMet {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidationFailed, "student does not meet the course requirements"),
			verdict.UnmetRequirements)
	}

	if _, err := s.allocator.ClaimSeat(ctx, request.StudentID, request.CourseID, ClaimOptions{}); err != nil {
		return err
	}
	if err := s.requests.UpdateStatus(ctx, request.ID, models.RequestStatusApproved, nil, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	return nil
}

// BulkApprove processes each request independently and reports per-id
// outcomes; one failure never aborts the sweep.
func (s *RequestService) BulkApprove(ctx context.Context, actorID string, req BulkApproveRequest) []models.RequestOutcome {
	outcomes := make([]models.RequestOutcome, 0, len(req.RequestIDs))
	for _, id := range req.RequestIDs {
		detail, err := s.Process(ctx, id, actorID, ProcessRequestRequest{Status: models.RequestStatusApproved})
		if err != nil {
			outcome := models.RequestOutcome{RequestID: id, Success: false, Error: err.Error()}
			if appErr := appErrors.FromError(err); appErr != nil {
				outcome.Error = appErr.Message
				outcome.Details = appErr.Details
			}
			outcomes = append(outcomes, outcome)
			continue
		}
		outcomes = append(outcomes, models.RequestOutcome{
			RequestID: id,
			Success:   true,
			Status:    detail.Status,
			Request:   detail,
		})
	}
	return outcomes
}

// Cancel withdraws a request. Only PENDING requests can be cancelled; the
// row is kept with CANCELLED status rather than deleted.
func (s *RequestService) Cancel(ctx context.Context, id, studentID string) (*models.RequestDetail, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if studentID != "" && request.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("only PENDING requests can be cancelled, request is %s", request.Status))
	}
	if err := s.requests.UpdateStatus(ctx, request.ID, models.RequestStatusCancelled, nil, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	return s.detail(ctx, request.ID)
}

func (s *RequestService) detail(ctx context.Context, id string) (*models.RequestDetail, error) {
	detail, err := s.requests.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return detail, nil
}
