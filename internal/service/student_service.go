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

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

// CreateStudentRequest is the payload for registering a student record.
type CreateStudentRequest struct {
	UserID           *string  `json:"user_id" validate:"omitempty,uuid4"`
	StudentNumber    string   `json:"student_number" validate:"required,min=3,max=30"`
	Program          string   `json:"program" validate:"required,max=100"`
	YearOfStudy      int      `json:"year_of_study" validate:"required,gte=1,lte=8"`
	CreditsCompleted int      `json:"credits_completed" validate:"gte=0,lte=600"`
	CurrentGPA       *float64 `json:"current_gpa" validate:"omitempty,gte=0,lte=4"`
}

// UpdateStudentRequest is the payload for updating a student record.
type UpdateStudentRequest struct {
	Program          string   `json:"program" validate:"required,max=100"`
	YearOfStudy      int      `json:"year_of_study" validate:"required,gte=1,lte=8"`
	CreditsCompleted int      `json:"credits_completed" validate:"gte=0,lte=600"`
	CurrentGPA       *float64 `json:"current_gpa" validate:"omitempty,gte=0,lte=4"`
	Active           *bool    `json:"active"`
}

// StudentService manages student records.
type StudentService struct {
	students  studentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentStore, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validator.New(), logger: logger}
}

// List returns students matching the filter along with the total count.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns a student with display fields.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.students.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// Create registers a new student record.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	student := &models.Student{
		UserID:           req.UserID,
		StudentNumber:    strings.ToUpper(strings.TrimSpace(req.StudentNumber)),
		Program:          strings.TrimSpace(req.Program),
		YearOfStudy:      req.YearOfStudy,
		CreditsCompleted: req.CreditsCompleted,
		CurrentGPA:       req.CurrentGPA,
		Active:           true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created",
		zap.String("student_id", student.ID),
		zap.String("student_number", student.StudentNumber))
	return student, nil
}

// Update rewrites mutable student attributes.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, validationMessage(err))
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student.Program = strings.TrimSpace(req.Program)
	student.YearOfStudy = req.YearOfStudy
	student.CreditsCompleted = req.CreditsCompleted
	student.CurrentGPA = req.CurrentGPA
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// RequireOwnRecord verifies that the authenticated student matches id. Staff
// roles skip this check at the handler layer.
func RequireOwnRecord(claimStudentID, id string) error {
	if claimStudentID == "" || claimStudentID != id {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("no access to student %s", id))
	}
	return nil
}
