package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type allocationWriter interface {
	Snapshot(ctx context.Context, courseID string) (*repository.CourseSnapshot, error)
	InsertEnrollmentVersioned(ctx context.Context, enrollment *models.Enrollment, expectedVersion int64) error
	TransitionEnrollmentVersioned(ctx context.Context, enrollmentID, courseID string, from, to models.EnrollmentStatus, finalGrade *string, expectedVersion int64) error
}

type allocationEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type allocationObserver interface {
	ObserveClaimAttempt(outcome string)
	ObserveSeatChange(delta int)
}

// ClaimOptions adjust a single seat claim. BypassCapacity admits the student
// even when the course is full; Override marks the enrollment as an
// administrative placement.
type ClaimOptions struct {
	BypassCapacity bool
	Override       bool
}

// AllocationService is the only path that occupies or frees seats. It never
// trusts a stored counter: capacity is judged against the ENROLLED count
// derived at snapshot time, and the write is conditional on the course
// version read in the same snapshot. A version conflict restarts the loop
// from a fresh snapshot, up to maxRetries attempts.
type AllocationService struct {
	allocations allocationWriter
	enrollments allocationEnrollmentReader
	metrics     allocationObserver
	logger      *zap.Logger
	maxRetries  int
}

// NewAllocationService constructs AllocationService. metrics may be nil.
func NewAllocationService(allocations allocationWriter, enrollments allocationEnrollmentReader, metrics allocationObserver, maxRetries int, logger *zap.Logger) *AllocationService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		allocations: allocations,
		enrollments: enrollments,
		metrics:     metrics,
		logger:      logger,
		maxRetries:  maxRetries,
	}
}

// ClaimSeat atomically occupies one seat for the student. Exactly one of N
// concurrent claims for the last seat wins; the rest observe either a full
// course or, after exhausting retries, a conflict error.
func (s *AllocationService) ClaimSeat(ctx context.Context, studentID, courseID string, opts ClaimOptions) (*models.Enrollment, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		// Checked on every attempt: a rival claim for the same pair may have
		// committed between the last check and the retry.
		exists, err := s.enrollments.ExistsByStudentAndCourse(ctx, studentID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}
		if exists {
			s.observe("duplicate")
			return nil, appErrors.ErrAlreadyEnrolled
		}

		snap, err := s.allocations.Snapshot(ctx, courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course snapshot")
		}

		if !opts.BypassCapacity && snap.EnrolledCount >= snap.Course.MaxCapacity {
			s.observe("capacity")
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
				fmt.Sprintf("course is full (capacity: %d)", snap.Course.MaxCapacity))
		}

		enrollment := &models.Enrollment{
			StudentID: studentID,
			CourseID:  courseID,
			Status:    models.EnrollmentStatusEnrolled,
			Override:  opts.Override,
		}
		err = s.allocations.InsertEnrollmentVersioned(ctx, enrollment, snap.Course.Version)
		if err == nil {
			s.observe("allocated")
			if s.metrics != nil {
				s.metrics.ObserveSeatChange(1)
			}
			s.logger.Info("seat claimed",
				zap.String("student_id", studentID),
				zap.String("course_id", courseID),
				zap.Int("attempt", attempt),
				zap.Bool("override", opts.Override))
			return enrollment, nil
		}
		if errors.Is(err, repository.ErrDuplicatePair) {
			s.observe("duplicate")
			return nil, appErrors.ErrAlreadyEnrolled
		}
		if errors.Is(err, repository.ErrVersionMismatch) {
			s.observe("conflict")
			s.logger.Debug("claim retried after version conflict",
				zap.String("course_id", courseID),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment")
	}

	s.logger.Warn("claim abandoned after repeated conflicts",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("max_retries", s.maxRetries))
	return nil, appErrors.Clone(appErrors.ErrConflict, "course is being updated concurrently, please retry")
}

// ReleaseSeat transitions an enrollment out of (or within) the occupied
// state. Terminal enrollments are immutable; a transition back to ENROLLED is
// never valid since seats are only occupied through ClaimSeat.
func (s *AllocationService) ReleaseSeat(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, finalGrade *string) (*models.Enrollment, error) {
	if status == models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot transition back to ENROLLED")
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		// The guards run against a fresh read on every attempt: a concurrent
		// transition may have landed a terminal status since the last one,
		// and that must reject the retry rather than be overwritten.
		enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.Status.IsTerminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("enrollment is %s and can no longer change", enrollment.Status))
		}
		if enrollment.Status == status {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("enrollment is already %s", status))
		}

		freesSeat := enrollment.Status == models.EnrollmentStatusEnrolled

		snap, err := s.allocations.Snapshot(ctx, enrollment.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course snapshot")
		}
		err = s.allocations.TransitionEnrollmentVersioned(ctx, enrollment.ID, enrollment.CourseID, enrollment.Status, status, finalGrade, snap.Course.Version)
		if err == nil {
			if freesSeat && s.metrics != nil {
				s.metrics.ObserveSeatChange(-1)
			}
			s.logger.Info("seat released",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("course_id", enrollment.CourseID),
				zap.String("status", string(status)))
			enrollment.Status = status
			if finalGrade != nil {
				enrollment.FinalGrade = finalGrade
			}
			return enrollment, nil
		}
		if errors.Is(err, repository.ErrVersionMismatch) {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition enrollment")
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "course is being updated concurrently, please retry")
}

func (s *AllocationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveClaimAttempt(outcome)
	}
}
