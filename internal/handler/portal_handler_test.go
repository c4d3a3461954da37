package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-allocation-api/internal/models"
)

type portalServiceMock struct {
	verdict       *models.EligibilityVerdict
	verdictErr    error
	lastStudentID string
	exportPayload []byte
	exportName    string
}

func (m *portalServiceMock) AvailableCourses(ctx context.Context, semesterID string, page, pageSize int) ([]models.CourseDetail, int, error) {
	return []models.CourseDetail{{Course: models.Course{ID: "crs-1"}}}, 1, nil
}

func (m *portalServiceMock) CheckEligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error) {
	m.lastStudentID = studentID
	return m.verdict, m.verdictErr
}

func (m *portalServiceMock) Transcript(ctx context.Context, studentID string) (*models.Transcript, error) {
	m.lastStudentID = studentID
	return &models.Transcript{}, nil
}

func (m *portalServiceMock) Schedule(ctx context.Context, studentID string) (*models.Schedule, error) {
	m.lastStudentID = studentID
	return &models.Schedule{}, nil
}

func (m *portalServiceMock) ExportTranscript(ctx context.Context, studentID, format string) ([]byte, string, error) {
	m.lastStudentID = studentID
	return m.exportPayload, m.exportName, nil
}

func TestPortalEligibilityUsesOwnStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &portalServiceMock{verdict: &models.EligibilityVerdict{Eligible: true}}
	handler := NewPortalHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/portal/courses/crs-1/eligibility", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "courseId", Value: "crs-1"}}
	asStudent(c, "stu-1")

	handler.CheckEligibility(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastStudentID)
}

func TestPortalStaffMustNameStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &portalServiceMock{verdict: &models.EligibilityVerdict{}}
	handler := NewPortalHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/portal/courses/crs-1/eligibility", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "courseId", Value: "crs-1"}}
	asAdmin(c)

	handler.CheckEligibility(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req, _ = http.NewRequest(http.MethodGet, "/portal/courses/crs-1/eligibility?student_id=stu-9", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "courseId", Value: "crs-1"}}
	asAdmin(c)

	handler.CheckEligibility(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-9", mockSvc.lastStudentID)
}

func TestPortalAccountWithoutStudentRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPortalHandler(&portalServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/portal/transcript", nil)
	c.Request = req
	asStudent(c, "")

	handler.Transcript(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPortalExportSetsAttachmentHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &portalServiceMock{exportPayload: []byte("Course Code,Title\n"), exportName: "transcript_S1001.csv"}
	handler := NewPortalHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/portal/transcript/export?format=csv", nil)
	c.Request = req
	asStudent(c, "stu-1")

	handler.ExportTranscript(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript_S1001.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}
