package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

// RequestRepository handles persistence of enrollment requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// List returns enrollment requests filtered by the provided criteria.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	base := `FROM enrollment_requests r
LEFT JOIN students s ON s.id = r.student_id
LEFT JOIN courses c ON c.id = r.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("r.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"requested_at": "r.requested_at",
		"status":       "r.status",
		"course_code":  "c.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.requested_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT r.id, r.student_id, r.course_id, r.status, r.request_reason,
        r.rejection_reason, r.requested_at, r.processed_at, r.created_at, r.updated_at,
        s.student_number AS student_number, c.code AS course_code, c.title AS course_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns an enrollment request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_id, course_id, status, request_reason, rejection_reason,
        requested_at, processed_at, created_at, updated_at FROM enrollment_requests WHERE id = $1`
	var request models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a request with student and course context.
func (r *RequestRepository) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	const query = `SELECT r.id, r.student_id, r.course_id, r.status, r.request_reason,
        r.rejection_reason, r.requested_at, r.processed_at, r.created_at, r.updated_at,
        s.student_number AS student_number, c.code AS course_code, c.title AS course_title
        FROM enrollment_requests r
        LEFT JOIN students s ON s.id = r.student_id
        LEFT JOIN courses c ON c.id = r.course_id
        WHERE r.id = $1`
	var detail models.RequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsOpen reports whether a non-terminal request exists for the pair.
func (r *RequestRepository) ExistsOpen(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollment_requests
        WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, studentID, courseID,
		models.RequestStatusPending, models.RequestStatusWaitlisted)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open request: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment request.
func (r *RequestRepository) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	now := time.Now().UTC()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = now
	}
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO enrollment_requests (id, student_id, course_id, status, request_reason,
        rejection_reason, requested_at, processed_at, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :request_reason, :rejection_reason,
        :requested_at, :processed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// UpdateStatus transitions the request and stamps processing time.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, rejectionReason *string, processedAt time.Time) error {
	const query = `UPDATE enrollment_requests SET status = $2, rejection_reason = $3,
        processed_at = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, rejectionReason, processedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// CountByStatus returns the number of requests in the given status.
func (r *RequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollment_requests WHERE status = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return total, nil
}
