package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type mockEligibilityStudents struct {
	students map[string]models.Student
}

func (m *mockEligibilityStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockEligibilityCourses struct {
	courses map[string]models.Course
}

func (m *mockEligibilityCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockEligibilityRequirements struct {
	requirements []models.RequirementDetail
}

func (m *mockEligibilityRequirements) ListByCourse(ctx context.Context, courseID string) ([]models.RequirementDetail, error) {
	return m.requirements, nil
}

type mockEligibilityEnrollments struct {
	history  []models.Enrollment
	enrolled int
}

func (m *mockEligibilityEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return m.history, nil
}

func (m *mockEligibilityEnrollments) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	return m.enrolled, nil
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func requirement(kind models.RequirementKind, mandatory bool) models.RequirementDetail {
	return models.RequirementDetail{CourseRequirement: models.CourseRequirement{Kind: kind, Mandatory: mandatory}}
}

func TestEvaluateEligibleWhenNoRequirements(t *testing.T) {
	student := &models.Student{ID: "stu-1", Program: "CS", YearOfStudy: 2}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}

	verdict := Evaluate(student, course, 10, nil, nil)

	assert.True(t, verdict.Eligible)
	assert.True(t, verdict.SeatsAvailable)
	assert.True(t, verdict.RequirementsMet)
	assert.False(t, verdict.HasRequirements)
	assert.Empty(t, verdict.UnmetRequirements)
	assert.Equal(t, "You are eligible to enroll in this course", verdict.Message)
}

func TestEvaluateAccumulatesAllFailures(t *testing.T) {
	gpaReq := requirement(models.RequirementGPA, true)
	gpaReq.MinGPA = floatPtr(3.0)
	yearReq := requirement(models.RequirementYear, true)
	yearReq.MinYear = intPtr(3)
	prereq := requirement(models.RequirementPrerequisite, true)
	prereq.PrerequisiteCourseID = strPtr("crs-0")
	prereq.PrerequisiteCode = strPtr("CS101")
	prereq.PrerequisiteTitle = strPtr("Intro")

	student := &models.Student{ID: "stu-1", YearOfStudy: 1, CurrentGPA: floatPtr(2.5)}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{gpaReq, yearReq, prereq}, nil)

	// Every failed check is reported, not only the first.
	assert.False(t, verdict.Eligible)
	assert.False(t, verdict.GPAMet)
	assert.False(t, verdict.YearMet)
	assert.False(t, verdict.PrerequisitesMet)
	assert.False(t, verdict.RequirementsMet)
	assert.Len(t, verdict.UnmetRequirements, 3)
}

func TestEvaluateMissingGPAFailsGPARequirement(t *testing.T) {
	gpaReq := requirement(models.RequirementGPA, true)
	gpaReq.MinGPA = floatPtr(2.0)

	student := &models.Student{ID: "stu-1", CurrentGPA: nil}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{gpaReq}, nil)

	assert.False(t, verdict.Eligible)
	assert.False(t, verdict.GPAMet)
	assert.Contains(t, verdict.UnmetRequirements[0], "no GPA recorded")
}

func TestEvaluateNonMandatoryDoesNotBlock(t *testing.T) {
	yearReq := requirement(models.RequirementYear, false)
	yearReq.MinYear = intPtr(3)

	student := &models.Student{ID: "stu-1", YearOfStudy: 1}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{yearReq}, nil)

	assert.True(t, verdict.Eligible)
	assert.True(t, verdict.RequirementsMet)
	assert.True(t, verdict.YearMet)
	require.Len(t, verdict.UnmetRequirements, 1)
	assert.Contains(t, verdict.UnmetRequirements[0], "(recommended)")
}

func TestEvaluateFullCourse(t *testing.T) {
	student := &models.Student{ID: "stu-1"}
	course := &models.Course{ID: "crs-1", MaxCapacity: 2}

	verdict := Evaluate(student, course, 2, nil, nil)

	assert.False(t, verdict.Eligible)
	assert.False(t, verdict.SeatsAvailable)
	assert.True(t, verdict.RequirementsMet)
	assert.Contains(t, verdict.UnmetRequirements[0], "Course is full")
}

func TestEvaluateAnyHistoryRowBlocksReenrollment(t *testing.T) {
	student := &models.Student{ID: "stu-1"}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}
	history := []models.Enrollment{{CourseID: "crs-1", Status: models.EnrollmentStatusDropped}}

	verdict := Evaluate(student, course, 0, nil, history)

	assert.False(t, verdict.Eligible)
	assert.True(t, verdict.AlreadyEnrolled)
}

func TestEvaluatePrerequisiteNeedsCompletion(t *testing.T) {
	prereq := requirement(models.RequirementPrerequisite, true)
	prereq.PrerequisiteCourseID = strPtr("crs-0")

	student := &models.Student{ID: "stu-1"}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}
	history := []models.Enrollment{{CourseID: "crs-0", Status: models.EnrollmentStatusEnrolled}}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{prereq}, history)
	assert.False(t, verdict.Eligible)
	assert.False(t, verdict.PrerequisitesMet)

	history[0].Status = models.EnrollmentStatusCompleted
	verdict = Evaluate(student, course, 0, []models.RequirementDetail{prereq}, history)
	assert.True(t, verdict.Eligible)
}

func TestEvaluateCorequisiteAcceptsEnrolled(t *testing.T) {
	coreq := requirement(models.RequirementCorequisite, true)
	coreq.PrerequisiteCourseID = strPtr("crs-0")

	student := &models.Student{ID: "stu-1"}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}
	history := []models.Enrollment{{CourseID: "crs-0", Status: models.EnrollmentStatusEnrolled}}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{coreq}, history)
	assert.True(t, verdict.Eligible)
}

func TestEvaluateProgramAndCredits(t *testing.T) {
	programReq := requirement(models.RequirementProgram, true)
	programReq.RequiredProgram = strPtr("CS")
	creditReq := requirement(models.RequirementCredit, true)
	creditReq.MinCreditsCompleted = intPtr(60)

	student := &models.Student{ID: "stu-1", Program: "EE", CreditsCompleted: 45}
	course := &models.Course{ID: "crs-1", MaxCapacity: 30}

	verdict := Evaluate(student, course, 0, []models.RequirementDetail{programReq, creditReq}, nil)

	assert.False(t, verdict.Eligible)
	assert.Len(t, verdict.UnmetRequirements, 2)
}

func TestEligibilityServiceEvaluateNotFound(t *testing.T) {
	svc := NewEligibilityService(
		&mockEligibilityStudents{},
		&mockEligibilityCourses{},
		&mockEligibilityRequirements{},
		&mockEligibilityEnrollments{},
		zap.NewNop(),
	)

	_, err := svc.Evaluate(context.Background(), "missing", "crs-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEligibilityServiceEvaluateLoadsSnapshots(t *testing.T) {
	svc := NewEligibilityService(
		&mockEligibilityStudents{students: map[string]models.Student{"stu-1": {ID: "stu-1"}}},
		&mockEligibilityCourses{courses: map[string]models.Course{"crs-1": {ID: "crs-1", MaxCapacity: 1}}},
		&mockEligibilityRequirements{},
		&mockEligibilityEnrollments{enrolled: 1},
		zap.NewNop(),
	)

	verdict, err := svc.Evaluate(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	assert.False(t, verdict.SeatsAvailable)
}
