package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type mockAdminCourses struct {
	course        *models.Course
	conflictTimes int
	updates       int
}

func (m *mockAdminCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	course := *m.course
	return &course, nil
}

func (m *mockAdminCourses) UpdateCapacityVersioned(ctx context.Context, id string, capacity int, expectedVersion int64) error {
	if m.conflictTimes > 0 {
		m.conflictTimes--
		m.course.Version++
		return repository.ErrVersionMismatch
	}
	if m.course.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	m.updates++
	m.course.MaxCapacity = capacity
	m.course.Version++
	return nil
}

func (m *mockAdminCourses) Count(ctx context.Context) (int, error) { return 12, nil }

type mockAdminStudents struct {
	students map[string]models.Student
}

func (m *mockAdminStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminStudents) Count(ctx context.Context) (int, error) { return 250, nil }

func (m *mockAdminStudents) AverageGPA(ctx context.Context) (float64, error) { return 3.1, nil }

type mockAdminEnrollments struct{}

func (mockAdminEnrollments) Count(ctx context.Context) (int, error) { return 900, nil }

func (mockAdminEnrollments) SumAllocatedCredits(ctx context.Context) (int, error) { return 2700, nil }

type mockAdminRequests struct{}

func (mockAdminRequests) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	return 7, nil
}

type mockAdminDepartments struct{}

func (mockAdminDepartments) Count(ctx context.Context) (int, error) { return 4, nil }

type mockAdminSemesters struct{}

func (mockAdminSemesters) CountActive(ctx context.Context) (int, error) { return 1, nil }

type memoryCache struct {
	values map[string][]byte
	sets   int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	stats := dest.(*models.SystemStatistics)
	stats.TotalStudents = -1 // marker proving the cached path was taken
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = nil
	m.sets++
	return nil
}

type recordingAllocator struct {
	lastOpts ClaimOptions
	released []models.EnrollmentStatus
	claimErr error
}

func (r *recordingAllocator) ClaimSeat(ctx context.Context, studentID, courseID string, opts ClaimOptions) (*models.Enrollment, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	r.lastOpts = opts
	return &models.Enrollment{ID: "enr-1", StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusEnrolled, Override: opts.Override}, nil
}

func (r *recordingAllocator) ReleaseSeat(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, finalGrade *string) (*models.Enrollment, error) {
	r.released = append(r.released, status)
	return &models.Enrollment{ID: enrollmentID, Status: status}, nil
}

func newAdminFixture(t *testing.T) (*AdminService, *mockAdminCourses, *recordingAllocator, *stubEligibility, *recordingAudit, *memoryCache) {
	t.Helper()
	courses := &mockAdminCourses{course: &models.Course{ID: testCourseID, Code: "CS301", MaxCapacity: 30, Version: 5}}
	allocator := &recordingAllocator{}
	eligibility := &stubEligibility{verdict: models.EligibilityVerdict{Eligible: true, RequirementsMet: true, SeatsAvailable: true}}
	audit := &recordingAudit{}
	cache := &memoryCache{}
	svc := NewAdminService(
		courses,
		&mockAdminStudents{students: map[string]models.Student{testStudentID: {ID: testStudentID}}},
		mockAdminEnrollments{},
		mockAdminRequests{},
		mockAdminDepartments{},
		mockAdminSemesters{},
		eligibility,
		allocator,
		cache,
		audit,
		time.Minute,
		3,
		zap.NewNop(),
	)
	return svc, courses, allocator, eligibility, audit, cache
}

func TestForceEnrollMarksOverride(t *testing.T) {
	svc, _, allocator, _, audit, _ := newAdminFixture(t)

	enrollment, err := svc.ForceEnroll(context.Background(), "admin-1", ForceEnrollRequest{
		StudentID:      testStudentID,
		CourseID:       testCourseID,
		BypassCapacity: true,
		Reason:         "late add approved by dean",
	})
	require.NoError(t, err)
	assert.True(t, enrollment.Override)
	assert.True(t, allocator.lastOpts.BypassCapacity)
	assert.True(t, allocator.lastOpts.Override)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionForceEnroll, audit.entries[0].Action)
}

func TestForceEnrollChecksRequirementsUnlessBypassed(t *testing.T) {
	svc, _, _, eligibility, _, _ := newAdminFixture(t)
	eligibility.verdict = models.EligibilityVerdict{RequirementsMet: false, UnmetRequirements: []string{"Minimum year required: 3 (current: 1)"}}

	_, err := svc.ForceEnroll(context.Background(), "admin-1", ForceEnrollRequest{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Reason:    "petition",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidationFailed))

	_, err = svc.ForceEnroll(context.Background(), "admin-1", ForceEnrollRequest{
		StudentID:           testStudentID,
		CourseID:            testCourseID,
		BypassPrerequisites: true,
		Reason:              "petition",
	})
	require.NoError(t, err)
}

func TestForceEnrollRequiresReason(t *testing.T) {
	svc, _, _, _, _, _ := newAdminFixture(t)

	_, err := svc.ForceEnroll(context.Background(), "admin-1", ForceEnrollRequest{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestForceDropReleasesSeat(t *testing.T) {
	svc, _, allocator, _, audit, _ := newAdminFixture(t)

	enrollment, err := svc.ForceDrop(context.Background(), "admin-1", "enr-1", "disciplinary")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	assert.Equal(t, []models.EnrollmentStatus{models.EnrollmentStatusDropped}, allocator.released)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionForceDrop, audit.entries[0].Action)
}

func TestUpdateEmergencyCapacityRetriesOnConflict(t *testing.T) {
	svc, courses, _, _, audit, _ := newAdminFixture(t)
	courses.conflictTimes = 2

	course, err := svc.UpdateEmergencyCapacity(context.Background(), "admin-1", testCourseID, EmergencyCapacityRequest{
		MaxCapacity: 50,
		Reason:      "room change",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, course.MaxCapacity)
	assert.Equal(t, 1, courses.updates)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionCapacityChange, audit.entries[0].Action)
}

func TestUpdateEmergencyCapacityExhaustsRetries(t *testing.T) {
	svc, courses, _, _, _, _ := newAdminFixture(t)
	courses.conflictTimes = 10

	_, err := svc.UpdateEmergencyCapacity(context.Background(), "admin-1", testCourseID, EmergencyCapacityRequest{
		MaxCapacity: 50,
		Reason:      "room change",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestStatisticsComputedThenCached(t *testing.T) {
	svc, _, _, _, _, cache := newAdminFixture(t)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250, stats.TotalStudents)
	assert.Equal(t, 12, stats.TotalCourses)
	assert.Equal(t, 7, stats.PendingRequests)
	assert.Equal(t, 1, cache.sets)

	cached, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, cached.TotalStudents)
	assert.Equal(t, 1, cache.sets)
}
