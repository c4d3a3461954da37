package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

const statisticsCacheKey = "stats:system"

type adminCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	UpdateCapacityVersioned(ctx context.Context, id string, capacity int, expectedVersion int64) error
	Count(ctx context.Context) (int, error)
}

type adminStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Count(ctx context.Context) (int, error)
	AverageGPA(ctx context.Context) (float64, error)
}

type adminEnrollmentReader interface {
	Count(ctx context.Context) (int, error)
	SumAllocatedCredits(ctx context.Context) (int, error)
}

type adminRequestReader interface {
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
}

type adminDepartmentReader interface {
	Count(ctx context.Context) (int, error)
}

type adminSemesterReader interface {
	CountActive(ctx context.Context) (int, error)
}

type statisticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type adminAllocator interface {
	ClaimSeat(ctx context.Context, studentID, courseID string, opts ClaimOptions) (*models.Enrollment, error)
	ReleaseSeat(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, finalGrade *string) (*models.Enrollment, error)
}

// ForceEnrollRequest is the payload for an administrative placement.
type ForceEnrollRequest struct {
	StudentID           string `json:"student_id" validate:"required,uuid4"`
	CourseID            string `json:"course_id" validate:"required,uuid4"`
	BypassCapacity      bool   `json:"bypass_capacity"`
	BypassPrerequisites bool   `json:"bypass_prerequisites"`
	Reason              string `json:"reason" validate:"required,max=500"`
}

// EmergencyCapacityRequest is the payload for an emergency capacity change.
type EmergencyCapacityRequest struct {
	MaxCapacity int    `json:"max_capacity" validate:"required,gte=1,lte=1000"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// AdminService hosts privileged operations: force enrollment, force drop,
// emergency capacity changes and system statistics. Overrides may bypass
// capacity and prerequisites but never bypass the course version check; they
// contend for the version token like any other writer.
type AdminService struct {
	courses     adminCourseStore
	students    adminStudentReader
	enrollments adminEnrollmentReader
	requests    adminRequestReader
	departments adminDepartmentReader
	semesters   adminSemesterReader
	eligibility eligibilityEvaluator
	allocator   adminAllocator
	cache       statisticsCache
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
	maxRetries  int
}

// NewAdminService constructs AdminService. cache and audit may be nil.
func NewAdminService(courses adminCourseStore, students adminStudentReader, enrollments adminEnrollmentReader, requests adminRequestReader, departments adminDepartmentReader, semesters adminSemesterReader, eligibility eligibilityEvaluator, allocator adminAllocator, cache statisticsCache, audit auditRecorder, cacheTTL time.Duration, maxRetries int, logger *zap.Logger) *AdminService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		courses:     courses,
		students:    students,
		enrollments: enrollments,
		requests:    requests,
		departments: departments,
		semesters:   semesters,
		eligibility: eligibility,
		allocator:   allocator,
		cache:       cache,
		audit:       audit,
		validator:   validator.New(),
		logger:      logger,
		cacheTTL:    cacheTTL,
		maxRetries:  maxRetries,
	}
}

// ForceEnroll places a student directly into a course. Prerequisite and
// capacity checks are individually bypassable; the duplicate-enrollment check
// and the version-guarded write are not.
func (s *AdminService) ForceEnroll(ctx context.Context, actorID string, req ForceEnrollRequest) (*models.Enrollment, error) {
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

	if !req.BypassPrerequisites {
		verdict, err := s.eligibility.Evaluate(ctx, req.StudentID, req.CourseID)
		if err != nil {
			return nil, err
		}
		if verdict.AlreadyEnrolled {
			return nil, appErrors.ErrAlreadyEnrolled
		}
		if !verdict.RequirementsMet {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidationFailed, "student does not meet the course requirements"),
				verdict.UnmetRequirements)
		}
	}

	enrollment, err := s.allocator.ClaimSeat(ctx, req.StudentID, req.CourseID, ClaimOptions{
		BypassCapacity: req.BypassCapacity,
		Override:       true,
	})
	if err != nil {
		return nil, err
	}

	s.record(models.AuditLog{
		ActorID:    actorID,
		Action:     models.AuditActionForceEnroll,
		EntityType: "enrollment",
		EntityID:   enrollment.ID,
		Detail: fmt.Sprintf("student %s into course %s (bypass_capacity=%t, bypass_prerequisites=%t): %s",
			req.StudentID, course.Code, req.BypassCapacity, req.BypassPrerequisites, req.Reason),
	})
	s.logger.Info("force enrollment",
		zap.String("actor_id", actorID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.Bool("bypass_capacity", req.BypassCapacity),
		zap.Bool("bypass_prerequisites", req.BypassPrerequisites))
	return enrollment, nil
}

// ForceDrop removes a student from a course administratively.
func (s *AdminService) ForceDrop(ctx context.Context, actorID, enrollmentID, reason string) (*models.Enrollment, error) {
	enrollment, err := s.allocator.ReleaseSeat(ctx, enrollmentID, models.EnrollmentStatusDropped, nil)
	if err != nil {
		return nil, err
	}
	s.record(models.AuditLog{
		ActorID:    actorID,
		Action:     models.AuditActionForceDrop,
		EntityType: "enrollment",
		EntityID:   enrollment.ID,
		Detail:     reason,
	})
	return enrollment, nil
}

// UpdateEmergencyCapacity rewrites a course's capacity under the version
// token, retrying on conflict. Shrinking below the current enrolled count is
// allowed; existing enrollments are never evicted.
func (s *AdminService) UpdateEmergencyCapacity(ctx context.Context, actorID, courseID string, req EmergencyCapacityRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		course, err := s.courses.FindByID(ctx, courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		err = s.courses.UpdateCapacityVersioned(ctx, courseID, req.MaxCapacity, course.Version)
		if err == nil {
			s.record(models.AuditLog{
				ActorID:    actorID,
				Action:     models.AuditActionCapacityChange,
				EntityType: "course",
				EntityID:   courseID,
				Detail:     fmt.Sprintf("capacity %d -> %d: %s", course.MaxCapacity, req.MaxCapacity, req.Reason),
			})
			s.logger.Info("emergency capacity change",
				zap.String("actor_id", actorID),
				zap.String("course_id", courseID),
				zap.Int("old_capacity", course.MaxCapacity),
				zap.Int("new_capacity", req.MaxCapacity))
			course.MaxCapacity = req.MaxCapacity
			course.Version++
			return course, nil
		}
		if errors.Is(err, repository.ErrVersionMismatch) {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
	}
	return nil, appErrors.Clone(appErrors.ErrConflict, "course is being updated concurrently, please retry")
}

// Statistics returns platform-wide counters, served from Redis when fresh.
func (s *AdminService) Statistics(ctx context.Context) (*models.SystemStatistics, error) {
	if s.cache != nil {
		var cached models.SystemStatistics
		if err := s.cache.Get(ctx, statisticsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats := &models.SystemStatistics{GeneratedAt: time.Now().UTC()}
	var err error
	if stats.TotalStudents, err = s.students.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if stats.TotalCourses, err = s.courses.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	if stats.TotalEnrollments, err = s.enrollments.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if stats.TotalDepartments, err = s.departments.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count departments")
	}
	if stats.ActiveSemesters, err = s.semesters.CountActive(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count semesters")
	}
	if stats.PendingRequests, err = s.requests.CountByStatus(ctx, models.RequestStatusPending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}
	if stats.AverageGPA, err = s.students.AverageGPA(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average GPA")
	}
	if stats.TotalCreditsAllocated, err = s.enrollments.SumAllocatedCredits(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum credits")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statisticsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache statistics", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *AdminService) record(entry models.AuditLog) {
	if s.audit != nil {
		s.audit.Record(entry)
	}
}
