package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type eligibilityStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type eligibilityCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type eligibilityRequirementReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.RequirementDetail, error)
}

type eligibilityEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	CountEnrolled(ctx context.Context, courseID string) (int, error)
}

// EligibilityService evaluates whether a student may occupy a seat in a
// course. Evaluation is side-effect free and safe under concurrent load; the
// service only loads snapshots and delegates to Evaluate.
type EligibilityService struct {
	students     eligibilityStudentReader
	courses      eligibilityCourseReader
	requirements eligibilityRequirementReader
	enrollments  eligibilityEnrollmentReader
	logger       *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(students eligibilityStudentReader, courses eligibilityCourseReader, requirements eligibilityRequirementReader, enrollments eligibilityEnrollmentReader, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{students: students, courses: courses, requirements: requirements, enrollments: enrollments, logger: logger}
}

// Evaluate loads the student, course, seat count and requirement snapshots
// and produces the verdict for the pair.
func (s *EligibilityService) Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	enrolledCount, err := s.enrollments.CountEnrolled(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	requirements, err := s.requirements.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirements")
	}
	history, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}

	verdict := Evaluate(student, course, enrolledCount, requirements, history)
	return &verdict, nil
}

// Evaluate applies every enrollment precondition for the pair and accumulates
// failures instead of short-circuiting, so callers see every unmet
// requirement at once. Pure over its inputs.
func Evaluate(student *models.Student, course *models.Course, enrolledCount int, requirements []models.RequirementDetail, history []models.Enrollment) models.EligibilityVerdict {
	verdict := models.EligibilityVerdict{
		HasRequirements:   len(requirements) > 0,
		PrerequisitesMet:  true,
		GPAMet:            true,
		YearMet:           true,
		RequirementsMet:   true,
		UnmetRequirements: []string{},
	}

	byCourse := make(map[string]models.Enrollment, len(history))
	for _, enrollment := range history {
		byCourse[enrollment.CourseID] = enrollment
	}

	// Any ledger row for the pair blocks re-enrollment, dropped included:
	// the pair is unique and rows are never deleted.
	if _, ok := byCourse[course.ID]; ok {
		verdict.AlreadyEnrolled = true
		verdict.UnmetRequirements = append(verdict.UnmetRequirements, "Already enrolled in this course")
	}

	verdict.SeatsAvailable = enrolledCount < course.MaxCapacity
	if !verdict.SeatsAvailable {
		verdict.UnmetRequirements = append(verdict.UnmetRequirements,
			fmt.Sprintf("Course is full (capacity: %d)", course.MaxCapacity))
	}

	for _, req := range requirements {
		unmet := evaluateRequirement(student, req, byCourse)
		if unmet == "" {
			continue
		}
		if !req.Mandatory {
			verdict.UnmetRequirements = append(verdict.UnmetRequirements, unmet+" (recommended)")
			continue
		}
		verdict.UnmetRequirements = append(verdict.UnmetRequirements, unmet)
		verdict.RequirementsMet = false
		switch req.Kind {
		case models.RequirementPrerequisite, models.RequirementCorequisite:
			verdict.PrerequisitesMet = false
		case models.RequirementGPA:
			verdict.GPAMet = false
		case models.RequirementYear:
			verdict.YearMet = false
		}
	}

	verdict.Eligible = !verdict.AlreadyEnrolled && verdict.SeatsAvailable && verdict.RequirementsMet
	if verdict.Eligible {
		verdict.Message = "You are eligible to enroll in this course"
	} else {
		verdict.Message = "You do not meet the requirements for this course"
	}
	return verdict
}

func evaluateRequirement(student *models.Student, req models.RequirementDetail, byCourse map[string]models.Enrollment) string {
	switch req.Kind {
	case models.RequirementPrerequisite:
		if req.PrerequisiteCourseID == nil {
			return ""
		}
		if enrollment, ok := byCourse[*req.PrerequisiteCourseID]; !ok || enrollment.Status != models.EnrollmentStatusCompleted {
			return fmt.Sprintf("Prerequisite required: %s - %s", deref(req.PrerequisiteCode), deref(req.PrerequisiteTitle))
		}
	case models.RequirementCorequisite:
		if req.PrerequisiteCourseID == nil {
			return ""
		}
		enrollment, ok := byCourse[*req.PrerequisiteCourseID]
		if !ok || (enrollment.Status != models.EnrollmentStatusEnrolled && enrollment.Status != models.EnrollmentStatusCompleted) {
			return fmt.Sprintf("Corequisite required: %s - %s", deref(req.PrerequisiteCode), deref(req.PrerequisiteTitle))
		}
	case models.RequirementGPA:
		if req.MinGPA == nil {
			return ""
		}
		if student.CurrentGPA == nil {
			return fmt.Sprintf("Minimum GPA required: %.2f (no GPA recorded)", *req.MinGPA)
		}
		if *student.CurrentGPA < *req.MinGPA {
			return fmt.Sprintf("Minimum GPA required: %.2f (current: %.2f)", *req.MinGPA, *student.CurrentGPA)
		}
	case models.RequirementYear:
		if req.MinYear == nil {
			return ""
		}
		if student.YearOfStudy < *req.MinYear {
			return fmt.Sprintf("Minimum year required: %d (current: %d)", *req.MinYear, student.YearOfStudy)
		}
	case models.RequirementCredit:
		if req.MinCreditsCompleted == nil {
			return ""
		}
		if student.CreditsCompleted < *req.MinCreditsCompleted {
			return fmt.Sprintf("Minimum credits required: %d (completed: %d)", *req.MinCreditsCompleted, student.CreditsCompleted)
		}
	case models.RequirementProgram:
		if req.RequiredProgram == nil {
			return ""
		}
		if student.Program != *req.RequiredProgram {
			return fmt.Sprintf("Required program: %s (current: %s)", *req.RequiredProgram, student.Program)
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
