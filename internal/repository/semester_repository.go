package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

// SemesterRepository handles persistence of semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs the repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns semesters filtered by the provided criteria.
func (r *SemesterRepository) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	base := "FROM semesters"
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, code, name, academic_year, start_date, end_date, is_active,
        created_at, updated_at %s ORDER BY start_date DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}
	return semesters, total, nil
}

// FindByID returns a semester by its ID.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, code, name, academic_year, start_date, end_date, is_active,
        created_at, updated_at FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindActive returns the single active semester, or sql.ErrNoRows.
func (r *SemesterRepository) FindActive(ctx context.Context) (*models.Semester, error) {
	const query = `SELECT id, code, name, academic_year, start_date, end_date, is_active,
        created_at, updated_at FROM semesters WHERE is_active = TRUE LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query); err != nil {
		return nil, err
	}
	return &semester, nil
}

// CountActive returns how many semesters are flagged active.
func (r *SemesterRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM semesters WHERE is_active = TRUE"); err != nil {
		return 0, fmt.Errorf("count active semesters: %w", err)
	}
	return total, nil
}

// Create persists a new semester.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	now := time.Now().UTC()
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	semester.CreatedAt = now
	semester.UpdatedAt = now
	const query = `INSERT INTO semesters (id, code, name, academic_year, start_date, end_date,
        is_active, created_at, updated_at)
        VALUES (:id, :code, :name, :academic_year, :start_date, :end_date,
        :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// SetActive marks one semester active and deactivates every other one, as a
// single transaction so there is never more than one active semester.
func (r *SemesterRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set-active tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, "UPDATE semesters SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE", now); err != nil {
		return fmt.Errorf("deactivate semesters: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE semesters SET is_active = TRUE, updated_at = $2 WHERE id = $1", id, now)
	if err != nil {
		return fmt.Errorf("activate semester: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate semester: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("activate semester: no semester with id %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set-active tx: %w", err)
	}
	return nil
}
