package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows(version int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "title", "credits", "level", "department_id", "semester_id",
		"lecturer_id", "max_capacity", "status", "description", "version", "created_at", "updated_at"}).
		AddRow("crs-1", "CS301", "Algorithms", 3, 3, nil, "sem-1", nil, 30, models.CourseStatusActive, "", version, time.Now(), time.Now())
}

func TestAllocationSnapshot(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery("SELECT c.id, c.code, c.title").
		WithArgs("crs-1").
		WillReturnRows(courseRows(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments`).
		WithArgs("crs-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	snap, err := repo.Snapshot(context.Background(), "crs-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Course.Version)
	assert.Equal(t, 12, snap.EnrolledCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEnrollmentVersioned(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"}
	err := repo.InsertEnrollmentVersioned(context.Background(), enrollment, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEnrollmentVersionedStaleVersion(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	// No row matches the expected version: the claim lost the race.
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InsertEnrollmentVersioned(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"}, 7)
	require.ErrorIs(t, err, ErrVersionMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEnrollmentVersionedDuplicatePair(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The (student_id, course_id) unique index rejects the row.
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.InsertEnrollmentVersioned(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"}, 7)
	require.ErrorIs(t, err, ErrDuplicatePair)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionEnrollmentVersioned(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE enrollments SET status").
		WithArgs("enr-1", models.EnrollmentStatusDropped, nil, sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.TransitionEnrollmentVersioned(context.Background(), "enr-1", "crs-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, nil, 4)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionEnrollmentVersionedStaleVersion(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.TransitionEnrollmentVersioned(context.Background(), "enr-1", "crs-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusWithdrawn, nil, 4)
	require.ErrorIs(t, err, ErrVersionMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionEnrollmentVersionedStatusMoved(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET version = version \\+ 1").
		WithArgs("crs-1", sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The row is no longer ENROLLED: the conditional update matches nothing
	// and the version bump rolls back with it.
	mock.ExpectExec("UPDATE enrollments SET status").
		WithArgs("enr-1", models.EnrollmentStatusDropped, nil, sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.TransitionEnrollmentVersioned(context.Background(), "enr-1", "crs-1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, nil, 4)
	require.ErrorIs(t, err, ErrVersionMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}
