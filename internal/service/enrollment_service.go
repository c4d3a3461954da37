package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type enrollmentLedgerReader interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type seatReleaser interface {
	ReleaseSeat(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, finalGrade *string) (*models.Enrollment, error)
}

// CompleteEnrollmentRequest carries the final grade recorded on completion.
type CompleteEnrollmentRequest struct {
	FinalGrade string `json:"final_grade" validate:"required,max=5"`
}

// EnrollmentService exposes the enrollment ledger and the status transitions
// students and staff perform on it. All seat-affecting writes delegate to the
// allocator so the course version token stays authoritative.
type EnrollmentService struct {
	enrollments enrollmentLedgerReader
	allocator   seatReleaser
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentLedgerReader, allocator seatReleaser, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		allocator:   allocator,
		validator:   validator.New(),
		logger:      logger,
	}
}

// List returns enrollments matching the filter along with the total count.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

// Get returns a single enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Drop frees the seat; the row stays in the ledger with DROPPED status.
func (s *EnrollmentService) Drop(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.allocator.ReleaseSeat(ctx, id, models.EnrollmentStatusDropped, nil)
}

// Complete closes the enrollment with a final grade. COMPLETED is terminal.
func (s *EnrollmentService) Complete(ctx context.Context, id string, req CompleteEnrollmentRequest) (*models.Enrollment, error) {
	req.FinalGrade = strings.ToUpper(strings.TrimSpace(req.FinalGrade))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "final grade is required")
	}
	return s.allocator.ReleaseSeat(ctx, id, models.EnrollmentStatusCompleted, &req.FinalGrade)
}

// Withdraw marks the enrollment WITHDRAWN. Terminal, frees the seat.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.Enrollment, error) {
	return s.allocator.ReleaseSeat(ctx, id, models.EnrollmentStatusWithdrawn, nil)
}
