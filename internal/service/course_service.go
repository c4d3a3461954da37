package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

const catalogCachePattern = "catalog:*"

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
}

type requirementStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.RequirementDetail, error)
	FindByID(ctx context.Context, id string) (*models.CourseRequirement, error)
	Create(ctx context.Context, requirement *models.CourseRequirement) error
	Delete(ctx context.Context, id string) error
}

type courseSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type catalogInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Code         string  `json:"code" validate:"required,min=2,max=20"`
	Title        string  `json:"title" validate:"required,max=200"`
	Credits      int     `json:"credits" validate:"required,gte=1,lte=30"`
	Level        int     `json:"level" validate:"required,gte=1,lte=8"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid4"`
	SemesterID   string  `json:"semester_id" validate:"required,uuid4"`
	LecturerID   *string `json:"lecturer_id" validate:"omitempty,uuid4"`
	MaxCapacity  int     `json:"max_capacity" validate:"required,gte=1,lte=1000"`
	Description  string  `json:"description" validate:"max=2000"`
}

// UpdateCourseRequest is the payload for updating a course. Capacity is not
// here on purpose: capacity changes are version-guarded admin operations.
type UpdateCourseRequest struct {
	Title        string              `json:"title" validate:"required,max=200"`
	Credits      int                 `json:"credits" validate:"required,gte=1,lte=30"`
	Level        int                 `json:"level" validate:"required,gte=1,lte=8"`
	DepartmentID *string             `json:"department_id" validate:"omitempty,uuid4"`
	LecturerID   *string             `json:"lecturer_id" validate:"omitempty,uuid4"`
	Status       models.CourseStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE CLOSED CANCELLED"`
	Description  string              `json:"description" validate:"max=2000"`
}

// CreateRequirementRequest is the payload for attaching a requirement edge.
type CreateRequirementRequest struct {
	Kind                 models.RequirementKind `json:"kind" validate:"required,oneof=PREREQUISITE COREQUISITE YEAR CREDIT PROGRAM GPA"`
	PrerequisiteCourseID *string                `json:"prerequisite_course_id" validate:"omitempty,uuid4"`
	MinGrade             *string                `json:"min_grade" validate:"omitempty,max=5"`
	MinCreditsCompleted  *int                   `json:"min_credits_completed" validate:"omitempty,gte=0,lte=600"`
	MinYear              *int                   `json:"min_year" validate:"omitempty,gte=1,lte=8"`
	RequiredProgram      *string                `json:"required_program" validate:"omitempty,max=100"`
	MinGPA               *float64               `json:"min_gpa" validate:"omitempty,gte=0,lte=4"`
	Mandatory            *bool                  `json:"mandatory"`
	Description          string                 `json:"description" validate:"max=500"`
}

// CourseService manages the course catalog and its requirement edges.
type CourseService struct {
	courses      courseStore
	requirements requirementStore
	semesters    courseSemesterReader
	cache        catalogInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService constructs CourseService. cache may be nil.
func NewCourseService(courses courseStore, requirements requirementStore, semesters courseSemesterReader, cache catalogInvalidator, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:      courses,
		requirements: requirements,
		semesters:    semesters,
		cache:        cache,
		validator:    validator.New(),
		logger:       logger,
	}
}

// List returns courses matching the filter along with the total count.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// Get returns a course with its derived enrolled count.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return detail, nil
}

// Create registers a new course offering in DRAFT status.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	taken, err := s.courses.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course code %s is already in use", req.Code))
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	course := &models.Course{
		Code:         req.Code,
		Title:        strings.TrimSpace(req.Title),
		Credits:      req.Credits,
		Level:        req.Level,
		DepartmentID: req.DepartmentID,
		SemesterID:   req.SemesterID,
		LecturerID:   req.LecturerID,
		MaxCapacity:  req.MaxCapacity,
		Status:       models.CourseStatusDraft,
		Description:  req.Description,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update rewrites mutable course attributes.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course.Title = strings.TrimSpace(req.Title)
	course.Credits = req.Credits
	course.Level = req.Level
	course.DepartmentID = req.DepartmentID
	course.LecturerID = req.LecturerID
	course.Status = req.Status
	course.Description = req.Description
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	return course, nil
}

// ListRequirements returns the course's requirement edges.
func (s *CourseService) ListRequirements(ctx context.Context, courseID string) ([]models.RequirementDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	requirements, err := s.requirements.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requirements")
	}
	return requirements, nil
}

// AddRequirement attaches a requirement edge to a course. The constraint
// named by Kind must actually be present, and a prerequisite edge cannot
// point at the course itself.
func (s *CourseService) AddRequirement(ctx context.Context, courseID, actorID string, req CreateRequirementRequest) (*models.CourseRequirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}
	if err := validateRequirementShape(courseID, req); err != nil {
		return nil, err
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if req.PrerequisiteCourseID != nil {
		if _, err := s.courses.FindByID(ctx, *req.PrerequisiteCourseID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite course")
		}
	}

	mandatory := true
	if req.Mandatory != nil {
		mandatory = *req.Mandatory
	}
	requirement := &models.CourseRequirement{
		CourseID:             courseID,
		PrerequisiteCourseID: req.PrerequisiteCourseID,
		MinGrade:             req.MinGrade,
		MinCreditsCompleted:  req.MinCreditsCompleted,
		MinYear:              req.MinYear,
		RequiredProgram:      req.RequiredProgram,
		MinGPA:               req.MinGPA,
		Kind:                 req.Kind,
		Mandatory:            mandatory,
		Description:          req.Description,
	}
	if actorID != "" {
		requirement.CreatedBy = &actorID
	}
	if err := s.requirements.Create(ctx, requirement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requirement")
	}
	return requirement, nil
}

// RemoveRequirement detaches a requirement edge from its course.
func (s *CourseService) RemoveRequirement(ctx context.Context, courseID, requirementID string) error {
	requirement, err := s.requirements.FindByID(ctx, requirementID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirement")
	}
	if requirement.CourseID != courseID {
		return appErrors.Clone(appErrors.ErrNotFound, "requirement does not belong to this course")
	}
	if err := s.requirements.Delete(ctx, requirementID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete requirement")
	}
	return nil
}

func validateRequirementShape(courseID string, req CreateRequirementRequest) error {
	switch req.Kind {
	case models.RequirementPrerequisite, models.RequirementCorequisite:
		if req.PrerequisiteCourseID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "prerequisite_course_id is required for this requirement kind")
		}
		if *req.PrerequisiteCourseID == courseID {
			return appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
		}
	case models.RequirementGPA:
		if req.MinGPA == nil {
			return appErrors.Clone(appErrors.ErrValidation, "min_gpa is required for GPA requirements")
		}
	case models.RequirementYear:
		if req.MinYear == nil {
			return appErrors.Clone(appErrors.ErrValidation, "min_year is required for YEAR requirements")
		}
	case models.RequirementCredit:
		if req.MinCreditsCompleted == nil {
			return appErrors.Clone(appErrors.ErrValidation, "min_credits_completed is required for CREDIT requirements")
		}
	case models.RequirementProgram:
		if req.RequiredProgram == nil {
			return appErrors.Clone(appErrors.ErrValidation, "required_program is required for PROGRAM requirements")
		}
	}
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCachePattern); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
