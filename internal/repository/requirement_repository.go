package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

// RequirementRepository handles persistence of course requirement edges.
type RequirementRepository struct {
	db *sqlx.DB
}

// NewRequirementRepository constructs the repository.
func NewRequirementRepository(db *sqlx.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// ListByCourse returns all requirement edges attached to a course, with the
// prerequisite course's display fields joined in.
func (r *RequirementRepository) ListByCourse(ctx context.Context, courseID string) ([]models.RequirementDetail, error) {
	const query = `SELECT q.id, q.course_id, q.prerequisite_course_id, q.min_grade, q.min_credits_completed,
        q.min_year, q.required_program, q.min_gpa, q.kind, q.mandatory, q.description, q.created_by,
        q.created_at, q.updated_at,
        p.code AS prerequisite_code, p.title AS prerequisite_title
        FROM course_requirements q
        LEFT JOIN courses p ON p.id = q.prerequisite_course_id
        WHERE q.course_id = $1 ORDER BY q.created_at`
	var requirements []models.RequirementDetail
	if err := r.db.SelectContext(ctx, &requirements, query, courseID); err != nil {
		return nil, fmt.Errorf("list course requirements: %w", err)
	}
	return requirements, nil
}

// FindByID returns a requirement by its ID.
func (r *RequirementRepository) FindByID(ctx context.Context, id string) (*models.CourseRequirement, error) {
	const query = `SELECT id, course_id, prerequisite_course_id, min_grade, min_credits_completed,
        min_year, required_program, min_gpa, kind, mandatory, description, created_by,
        created_at, updated_at FROM course_requirements WHERE id = $1`
	var requirement models.CourseRequirement
	if err := r.db.GetContext(ctx, &requirement, query, id); err != nil {
		return nil, err
	}
	return &requirement, nil
}

// Create persists a new requirement edge.
func (r *RequirementRepository) Create(ctx context.Context, requirement *models.CourseRequirement) error {
	now := time.Now().UTC()
	if requirement.ID == "" {
		requirement.ID = uuid.NewString()
	}
	requirement.CreatedAt = now
	requirement.UpdatedAt = now
	const query = `INSERT INTO course_requirements (id, course_id, prerequisite_course_id, min_grade,
        min_credits_completed, min_year, required_program, min_gpa, kind, mandatory, description,
        created_by, created_at, updated_at)
        VALUES (:id, :course_id, :prerequisite_course_id, :min_grade, :min_credits_completed,
        :min_year, :required_program, :min_gpa, :kind, :mandatory, :description,
        :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, requirement); err != nil {
		return fmt.Errorf("create requirement: %w", err)
	}
	return nil
}

// Delete removes a requirement edge.
func (r *RequirementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM course_requirements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete requirement: %w", err)
	}
	return nil
}
