package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type mockRequestStore struct {
	requests map[string]models.EnrollmentRequest
}

func (m *mockRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	details := make([]models.RequestDetail, 0, len(m.requests))
	for _, r := range m.requests {
		details = append(details, models.RequestDetail{EnrollmentRequest: r})
	}
	return details, len(details), nil
}

func (m *mockRequestStore) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestStore) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	if r, ok := m.requests[id]; ok {
		return &models.RequestDetail{EnrollmentRequest: r}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestStore) ExistsOpen(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, r := range m.requests {
		if r.StudentID == studentID && r.CourseID == courseID && !r.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestStore) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.EnrollmentRequest)
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.RequestedAt = time.Now().UTC()
	m.requests[request.ID] = *request
	return nil
}

func (m *mockRequestStore) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, rejectionReason *string, processedAt time.Time) error {
	r := m.requests[id]
	r.Status = status
	r.RejectionReason = rejectionReason
	r.ProcessedAt = &processedAt
	m.requests[id] = r
	return nil
}

type stubEligibility struct {
	verdict models.EligibilityVerdict
	err     error
}

func (s *stubEligibility) Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error) {
	if s.err != nil {
		return nil, s.err
	}
	verdict := s.verdict
	return &verdict, nil
}

type stubClaimer struct {
	err     error
	claimed int
}

func (s *stubClaimer) ClaimSeat(ctx context.Context, studentID, courseID string, opts ClaimOptions) (*models.Enrollment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.claimed++
	return &models.Enrollment{ID: uuid.NewString(), StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusEnrolled}, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordingAudit) Record(entry models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

type stubRequestEnrollments struct {
	exists bool
}

func (s *stubRequestEnrollments) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return s.exists, nil
}

const (
	testStudentID = "0aa68e5e-9726-4af1-b58e-2dfaac9e61f6"
	testCourseID  = "3b9e9df3-6af5-4a0e-93e9-35a1d2a34a6e"
)

func newRequestFixture(t *testing.T) (*RequestService, *mockRequestStore, *stubEligibility, *stubClaimer, *recordingAudit) {
	t.Helper()
	store := &mockRequestStore{requests: make(map[string]models.EnrollmentRequest)}
	eligibility := &stubEligibility{verdict: models.EligibilityVerdict{Eligible: true, RequirementsMet: true, SeatsAvailable: true}}
	claimer := &stubClaimer{}
	audit := &recordingAudit{}
	svc := NewRequestService(
		store,
		&mockEligibilityStudents{students: map[string]models.Student{testStudentID: {ID: testStudentID}}},
		&mockEligibilityCourses{courses: map[string]models.Course{testCourseID: {ID: testCourseID, Code: "CS301", MaxCapacity: 30, Status: models.CourseStatusActive}}},
		&stubRequestEnrollments{},
		eligibility,
		claimer,
		audit,
		zap.NewNop(),
	)
	return svc, store, eligibility, claimer, audit
}

func submitPending(t *testing.T, svc *RequestService) *models.RequestDetail {
	t.Helper()
	detail, err := svc.Submit(context.Background(), SubmitRequestRequest{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, detail.Status)
	return detail
}

func TestRequestSubmit(t *testing.T) {
	svc, store, _, _, _ := newRequestFixture(t)

	detail := submitPending(t, svc)
	assert.Len(t, store.requests, 1)
	assert.Equal(t, testStudentID, detail.StudentID)
}

func TestRequestSubmitRejectsInvalidPayload(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)

	_, err := svc.Submit(context.Background(), SubmitRequestRequest{StudentID: "not-a-uuid", CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRequestSubmitDuplicateOpenRequest(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)

	submitPending(t, svc)
	_, err := svc.Submit(context.Background(), SubmitRequestRequest{StudentID: testStudentID, CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRequest))
}

func TestRequestSubmitBlockedByEnrollment(t *testing.T) {
	svc, store, _, _, _ := newRequestFixture(t)
	store.requests = make(map[string]models.EnrollmentRequest)
	svc.enrollments = &stubRequestEnrollments{exists: true}

	_, err := svc.Submit(context.Background(), SubmitRequestRequest{StudentID: testStudentID, CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyEnrolled))
}

func TestRequestSubmitInactiveCourse(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)
	svc.courses = &mockEligibilityCourses{courses: map[string]models.Course{testCourseID: {ID: testCourseID, Code: "CS301", Status: models.CourseStatusDraft}}}

	_, err := svc.Submit(context.Background(), SubmitRequestRequest{StudentID: testStudentID, CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRequestApprove(t *testing.T) {
	svc, store, _, claimer, audit := newRequestFixture(t)
	detail := submitPending(t, svc)

	processed, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, processed.Status)
	assert.Equal(t, 1, claimer.claimed)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionRequestDecision, audit.entries[0].Action)
	assert.NotNil(t, store.requests[detail.ID].ProcessedAt)
}

func TestRequestApproveIneligibleKeepsStatus(t *testing.T) {
	svc, store, eligibility, claimer, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	eligibility.verdict = models.EligibilityVerdict{
		RequirementsMet:   false,
		SeatsAvailable:    true,
		UnmetRequirements: []string{"Minimum year required: 3 (current: 1)"},
	}

	_, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusApproved})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidationFailed))
	appErr := appErrors.FromError(err)
	assert.NotEmpty(t, appErr.Details)
	// The request survives the failed decision and can be waitlisted later.
	assert.Equal(t, models.RequestStatusPending, store.requests[detail.ID].Status)
	assert.Equal(t, 0, claimer.claimed)
}

func TestRequestApproveFullCourseSurfacesCapacity(t *testing.T) {
	svc, store, _, claimer, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	claimer.err = appErrors.ErrCapacityExceeded

	_, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusApproved})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Equal(t, models.RequestStatusPending, store.requests[detail.ID].Status)

	// The decision can then be downgraded to a waitlist.
	processed, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusWaitlisted})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusWaitlisted, processed.Status)
}

func TestRequestWaitlistedStaysOpen(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	_, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusWaitlisted})
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, processed.Status)
}

func TestRequestRejectRecordsReason(t *testing.T) {
	svc, store, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	processed, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusRejected, Reason: "section closed"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, processed.Status)
	require.NotNil(t, store.requests[detail.ID].RejectionReason)
	assert.Equal(t, "section closed", *store.requests[detail.ID].RejectionReason)
}

func TestRequestProcessTerminalRejected(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	_, err := svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusRejected})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), detail.ID, "admin-1", ProcessRequestRequest{Status: models.RequestStatusApproved})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestRequestCancel(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	cancelled, err := svc.Cancel(context.Background(), detail.ID, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), detail.ID, testStudentID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestRequestCancelOwnership(t *testing.T) {
	svc, _, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	_, err := svc.Cancel(context.Background(), detail.ID, "other-student")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	// Staff cancels without an ownership constraint.
	cancelled, err := svc.Cancel(context.Background(), detail.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, cancelled.Status)
}

func TestRequestBulkApproveReportsPerIDOutcomes(t *testing.T) {
	svc, store, _, _, _ := newRequestFixture(t)
	detail := submitPending(t, svc)

	rejectedID := uuid.NewString()
	store.requests[rejectedID] = models.EnrollmentRequest{
		ID:        rejectedID,
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Status:    models.RequestStatusRejected,
	}
	missingID := uuid.NewString()

	outcomes := svc.BulkApprove(context.Background(), "admin-1", BulkApproveRequest{
		RequestIDs: []string{detail.ID, rejectedID, missingID},
	})

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, models.RequestStatusApproved, outcomes[0].Status)
	assert.False(t, outcomes[1].Success)
	assert.False(t, outcomes[2].Success)
	assert.NotEmpty(t, outcomes[2].Error)
}
