package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

// ErrVersionMismatch signals that a course's version token moved between the
// snapshot read and the conditional write. Callers retry from the snapshot.
var ErrVersionMismatch = errors.New("course version changed")

// ErrDuplicatePair signals that the unique index on enrollments
// (student_id, course_id) rejected an insert: another claim for the same pair
// committed first.
var ErrDuplicatePair = errors.New("enrollment already exists for student and course")

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// AllocationRepository owns the write side of seat allocation: every mutation
// that occupies or frees a seat runs inside one transaction with a
// compare-and-swap on the course's version column.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// CourseSnapshot is a point-in-time read of the course row and its derived
// enrolled count, taken at the same version.
type CourseSnapshot struct {
	Course        models.Course
	EnrolledCount int
}

// Snapshot reads the course together with its current ENROLLED count.
func (r *AllocationRepository) Snapshot(ctx context.Context, courseID string) (*CourseSnapshot, error) {
	const query = `SELECT c.id, c.code, c.title, c.credits, c.level, c.department_id, c.semester_id,
        c.lecturer_id, c.max_capacity, c.status, c.description, c.version, c.created_at, c.updated_at
        FROM courses c WHERE c.id = $1`
	var snap CourseSnapshot
	if err := r.db.GetContext(ctx, &snap.Course, query, courseID); err != nil {
		return nil, err
	}
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &snap.EnrolledCount, countQuery, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("count enrolled: %w", err)
	}
	return &snap, nil
}

// InsertEnrollmentVersioned persists a new enrollment and bumps the course
// version as one atomic operation. Returns ErrVersionMismatch when another
// claim or release committed since expectedVersion was read, and
// ErrDuplicatePair when the (student_id, course_id) unique index already
// holds a row for the pair.
func (r *AllocationRepository) InsertEnrollmentVersioned(ctx context.Context, enrollment *models.Enrollment, expectedVersion int64) error {
	now := time.Now().UTC()
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := bumpCourseVersion(ctx, tx, enrollment.CourseID, expectedVersion); err != nil {
		return err
	}

	const insert = `INSERT INTO enrollments (id, student_id, course_id, enrolled_at, status, final_grade,
        override, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :enrolled_at, :status, :final_grade, :override, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicatePair
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim tx: %w", err)
	}
	return nil
}

// TransitionEnrollmentVersioned rewrites an enrollment's status (optionally
// recording a final grade) and bumps the course version in the same
// transaction, so releases are observed by concurrent claims. The write is
// conditional on the status the caller read: if the row left `from` in the
// meantime, the whole transaction rolls back with ErrVersionMismatch and the
// caller revalidates from a fresh read.
func (r *AllocationRepository) TransitionEnrollmentVersioned(ctx context.Context, enrollmentID, courseID string, from, to models.EnrollmentStatus, finalGrade *string, expectedVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := bumpCourseVersion(ctx, tx, courseID, expectedVersion); err != nil {
		return err
	}

	const update = `UPDATE enrollments SET status = $2, final_grade = COALESCE($3, final_grade), updated_at = $4
        WHERE id = $1 AND status = $5`
	res, err := tx.ExecContext(ctx, update, enrollmentID, to, finalGrade, time.Now().UTC(), from)
	if err != nil {
		return fmt.Errorf("transition enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition enrollment: %w", err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release tx: %w", err)
	}
	return nil
}

func bumpCourseVersion(ctx context.Context, tx *sqlx.Tx, courseID string, expectedVersion int64) error {
	const cas = `UPDATE courses SET version = version + 1, updated_at = $2 WHERE id = $1 AND version = $3`
	res, err := tx.ExecContext(ctx, cas, courseID, time.Now().UTC(), expectedVersion)
	if err != nil {
		return fmt.Errorf("bump course version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump course version: %w", err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return nil
}
