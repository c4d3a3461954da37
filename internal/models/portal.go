package models

import "time"

// CourseGradeRecord is one completed course on a transcript.
type CourseGradeRecord struct {
	CourseCode   string  `json:"course_code"`
	CourseTitle  string  `json:"course_title"`
	Credits      int     `json:"credits"`
	SemesterCode string  `json:"semester_code"`
	FinalGrade   *string `json:"final_grade,omitempty"`
	Status       string  `json:"status"`
}

// Transcript summarises a student's completed coursework.
type Transcript struct {
	StudentNumber    string              `json:"student_number"`
	StudentName      string              `json:"student_name"`
	Program          string              `json:"program"`
	YearOfStudy      int                 `json:"year_of_study"`
	CreditsCompleted int                 `json:"credits_completed"`
	CurrentGPA       *float64            `json:"current_gpa,omitempty"`
	Courses          []CourseGradeRecord `json:"courses"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

// ScheduledCourse is one active enrollment on the current schedule.
type ScheduledCourse struct {
	CourseCode   string `json:"course_code"`
	CourseTitle  string `json:"course_title"`
	Credits      int    `json:"credits"`
	LecturerName string `json:"lecturer_name"`
	Status       string `json:"status"`
}

// Schedule lists a student's ENROLLED courses for the active semester.
type Schedule struct {
	StudentNumber string            `json:"student_number"`
	SemesterCode  string            `json:"semester_code"`
	Courses       []ScheduledCourse `json:"courses"`
	TotalCredits  int               `json:"total_credits"`
	GeneratedAt   time.Time         `json:"generated_at"`
}
