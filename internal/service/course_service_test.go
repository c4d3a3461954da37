package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type mockCourseStore struct {
	courses map[string]models.Course
	byCode  map[string]string
}

func newMockCourseStore() *mockCourseStore {
	return &mockCourseStore{courses: make(map[string]models.Course), byCode: make(map[string]string)}
}

func (m *mockCourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	details := make([]models.CourseDetail, 0, len(m.courses))
	for _, c := range m.courses {
		details = append(details, models.CourseDetail{Course: c})
	}
	return details, len(details), nil
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return &models.CourseDetail{Course: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	id, ok := m.byCode[code]
	return ok && id != excludeID, nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.Version = 1
	m.courses[course.ID] = *course
	m.byCode[course.Code] = course.ID
	return nil
}

func (m *mockCourseStore) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

type mockRequirementStore struct {
	requirements map[string]models.CourseRequirement
}

func (m *mockRequirementStore) ListByCourse(ctx context.Context, courseID string) ([]models.RequirementDetail, error) {
	var details []models.RequirementDetail
	for _, r := range m.requirements {
		if r.CourseID == courseID {
			details = append(details, models.RequirementDetail{CourseRequirement: r})
		}
	}
	return details, nil
}

func (m *mockRequirementStore) FindByID(ctx context.Context, id string) (*models.CourseRequirement, error) {
	if r, ok := m.requirements[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequirementStore) Create(ctx context.Context, requirement *models.CourseRequirement) error {
	if m.requirements == nil {
		m.requirements = make(map[string]models.CourseRequirement)
	}
	if requirement.ID == "" {
		requirement.ID = uuid.NewString()
	}
	m.requirements[requirement.ID] = *requirement
	return nil
}

func (m *mockRequirementStore) Delete(ctx context.Context, id string) error {
	delete(m.requirements, id)
	return nil
}

type mockSemesterReader struct {
	semesters map[string]models.Semester
}

func (m *mockSemesterReader) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	c.calls++
	return nil
}

const testSemesterID = "5f0c8c1a-4c4e-4be6-9a56-9a84f2f2b0a1"

func newCourseFixture(t *testing.T) (*CourseService, *mockCourseStore, *mockRequirementStore, *countingInvalidator) {
	t.Helper()
	courses := newMockCourseStore()
	requirements := &mockRequirementStore{requirements: make(map[string]models.CourseRequirement)}
	invalidator := &countingInvalidator{}
	svc := NewCourseService(
		courses,
		requirements,
		&mockSemesterReader{semesters: map[string]models.Semester{testSemesterID: {ID: testSemesterID}}},
		invalidator,
		zap.NewNop(),
	)
	return svc, courses, requirements, invalidator
}

func validCreateCourse() CreateCourseRequest {
	return CreateCourseRequest{
		Code:        "cs301",
		Title:       "Algorithms",
		Credits:     3,
		Level:       3,
		SemesterID:  testSemesterID,
		MaxCapacity: 30,
	}
}

func TestCourseCreateStartsDraftAndUppercasesCode(t *testing.T) {
	svc, _, _, invalidator := newCourseFixture(t)

	course, err := svc.Create(context.Background(), validCreateCourse())
	require.NoError(t, err)
	assert.Equal(t, "CS301", course.Code)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.Equal(t, int64(1), course.Version)
	assert.Equal(t, 1, invalidator.calls)
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	svc, _, _, _ := newCourseFixture(t)

	_, err := svc.Create(context.Background(), validCreateCourse())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validCreateCourse())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestCourseCreateUnknownSemester(t *testing.T) {
	svc, _, _, _ := newCourseFixture(t)

	req := validCreateCourse()
	req.SemesterID = uuid.NewString()
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAddRequirementRejectsSelfPrerequisite(t *testing.T) {
	svc, _, _, _ := newCourseFixture(t)
	course, err := svc.Create(context.Background(), validCreateCourse())
	require.NoError(t, err)

	_, err = svc.AddRequirement(context.Background(), course.ID, "admin-1", CreateRequirementRequest{
		Kind:                 models.RequirementPrerequisite,
		PrerequisiteCourseID: &course.ID,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAddRequirementEnforcesKindShape(t *testing.T) {
	svc, _, _, _ := newCourseFixture(t)
	course, err := svc.Create(context.Background(), validCreateCourse())
	require.NoError(t, err)

	_, err = svc.AddRequirement(context.Background(), course.ID, "admin-1", CreateRequirementRequest{Kind: models.RequirementGPA})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	minGPA := 3.0
	requirement, err := svc.AddRequirement(context.Background(), course.ID, "admin-1", CreateRequirementRequest{
		Kind:   models.RequirementGPA,
		MinGPA: &minGPA,
	})
	require.NoError(t, err)
	assert.True(t, requirement.Mandatory)
	require.NotNil(t, requirement.CreatedBy)
	assert.Equal(t, "admin-1", *requirement.CreatedBy)
}

func TestRemoveRequirementChecksOwnership(t *testing.T) {
	svc, _, requirements, _ := newCourseFixture(t)
	course, err := svc.Create(context.Background(), validCreateCourse())
	require.NoError(t, err)

	minYear := 2
	requirement, err := svc.AddRequirement(context.Background(), course.ID, "admin-1", CreateRequirementRequest{
		Kind:    models.RequirementYear,
		MinYear: &minYear,
	})
	require.NoError(t, err)

	err = svc.RemoveRequirement(context.Background(), "other-course", requirement.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.RemoveRequirement(context.Background(), course.ID, requirement.ID))
	assert.Empty(t, requirements.requirements)
}
