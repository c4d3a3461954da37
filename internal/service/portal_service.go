package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
	"github.com/noah-isme/course-allocation-api/pkg/export"
)

// Transcript export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type portalStudentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type portalCourseReader interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
}

type portalEnrollmentReader interface {
	ListDetailByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type portalSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindActive(ctx context.Context) (*models.Semester, error)
}

type portalCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// PortalService serves the student-facing read side: browsing open courses,
// checking eligibility before requesting a seat, transcripts and schedules.
type PortalService struct {
	students    portalStudentReader
	courses     portalCourseReader
	enrollments portalEnrollmentReader
	semesters   portalSemesterReader
	eligibility eligibilityEvaluator
	cache       portalCache
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewPortalService constructs PortalService. cache may be nil.
func NewPortalService(students portalStudentReader, courses portalCourseReader, enrollments portalEnrollmentReader, semesters portalSemesterReader, eligibility eligibilityEvaluator, cache portalCache, cacheTTL time.Duration, logger *zap.Logger) *PortalService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalService{
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		semesters:   semesters,
		eligibility: eligibility,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

// AvailableCourses lists ACTIVE courses for the given semester, defaulting to
// the active semester. Pages are cached per semester.
func (s *PortalService) AvailableCourses(ctx context.Context, semesterID string, page, pageSize int) ([]models.CourseDetail, int, error) {
	if semesterID == "" {
		active, err := s.semesters.FindActive(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "no active semester")
			}
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
		}
		semesterID = active.ID
	} else if _, err := s.semesters.FindByID(ctx, semesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	type cachedPage struct {
		Courses []models.CourseDetail `json:"courses"`
		Total   int                   `json:"total"`
	}
	key := fmt.Sprintf("catalog:semester:%s:page:%d:size:%d", semesterID, page, pageSize)
	if s.cache != nil {
		var cached cachedPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Courses, cached.Total, nil
		}
	}

	courses, total, err := s.courses.List(ctx, models.CourseFilter{
		SemesterID: semesterID,
		Status:     models.CourseStatusActive,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedPage{Courses: courses, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache catalog page", zap.Error(err))
		}
	}
	return courses, total, nil
}

// CheckEligibility evaluates every enrollment precondition for the pair.
func (s *PortalService) CheckEligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityVerdict, error) {
	return s.eligibility.Evaluate(ctx, studentID, courseID)
}

// Transcript builds the student's completed coursework summary.
func (s *PortalService) Transcript(ctx context.Context, studentID string) (*models.Transcript, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.enrollments.ListDetailByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	transcript := &models.Transcript{
		StudentNumber:    student.StudentNumber,
		StudentName:      student.FullName,
		Program:          student.Program,
		YearOfStudy:      student.YearOfStudy,
		CreditsCompleted: student.CreditsCompleted,
		CurrentGPA:       student.CurrentGPA,
		Courses:          []models.CourseGradeRecord{},
		GeneratedAt:      time.Now().UTC(),
	}
	for _, e := range enrollments {
		if e.Status != models.EnrollmentStatusCompleted {
			continue
		}
		transcript.Courses = append(transcript.Courses, models.CourseGradeRecord{
			CourseCode:   e.CourseCode,
			CourseTitle:  e.CourseTitle,
			Credits:      e.Credits,
			SemesterCode: e.SemesterCode,
			FinalGrade:   e.FinalGrade,
			Status:       string(e.Status),
		})
	}
	return transcript, nil
}

// Schedule lists the student's ENROLLED courses in the active semester.
func (s *PortalService) Schedule(ctx context.Context, studentID string) (*models.Schedule, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	active, err := s.semesters.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}
	enrollments, err := s.enrollments.ListDetailByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	schedule := &models.Schedule{
		StudentNumber: student.StudentNumber,
		SemesterCode:  active.Code,
		Courses:       []models.ScheduledCourse{},
		GeneratedAt:   time.Now().UTC(),
	}
	for _, e := range enrollments {
		if e.Status != models.EnrollmentStatusEnrolled || e.SemesterID != active.ID {
			continue
		}
		lecturer := strings.TrimSpace(e.LecturerName)
		if lecturer == "" {
			lecturer = "TBA"
		}
		schedule.Courses = append(schedule.Courses, models.ScheduledCourse{
			CourseCode:   e.CourseCode,
			CourseTitle:  e.CourseTitle,
			Credits:      e.Credits,
			LecturerName: lecturer,
			Status:       string(e.Status),
		})
		schedule.TotalCredits += e.Credits
	}
	return schedule, nil
}

// ExportTranscript renders the transcript as CSV or PDF and returns the
// payload with a suggested filename.
func (s *PortalService) ExportTranscript(ctx context.Context, studentID, format string) ([]byte, string, error) {
	transcript, err := s.Transcript(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course Code", "Title", "Credits", "Semester", "Grade"},
	}
	for _, record := range transcript.Courses {
		grade := ""
		if record.FinalGrade != nil {
			grade = *record.FinalGrade
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course Code": record.CourseCode,
			"Title":       record.CourseTitle,
			"Credits":     fmt.Sprintf("%d", record.Credits),
			"Semester":    record.SemesterCode,
			"Grade":       grade,
		})
	}

	switch strings.ToLower(format) {
	case ExportFormatCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, fmt.Sprintf("transcript_%s.csv", transcript.StudentNumber), nil
	case ExportFormatPDF:
		summary := []string{
			fmt.Sprintf("Student: %s (%s)", transcript.StudentName, transcript.StudentNumber),
			fmt.Sprintf("Program: %s, Year %d", transcript.Program, transcript.YearOfStudy),
			fmt.Sprintf("Credits completed: %d", transcript.CreditsCompleted),
		}
		if transcript.CurrentGPA != nil {
			summary = append(summary, fmt.Sprintf("Current GPA: %.2f", *transcript.CurrentGPA))
		}
		payload, err := s.pdf.Render(dataset, "Academic Transcript", summary)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, fmt.Sprintf("transcript_%s.pdf", transcript.StudentNumber), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
