package models

import "time"

// CourseStatus represents the lifecycle of a course offering.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusActive    CourseStatus = "ACTIVE"
	CourseStatusClosed    CourseStatus = "CLOSED"
	CourseStatusCancelled CourseStatus = "CANCELLED"
)

// Course is an offering with bounded capacity. Version is the optimistic
// concurrency token guarding seat allocation; it advances on every claim,
// release and capacity change. The enrolled seat count is never stored, it is
// derived from enrollment rows at read time.
type Course struct {
	ID           string       `db:"id" json:"id"`
	Code         string       `db:"code" json:"code"`
	Title        string       `db:"title" json:"title"`
	Credits      int          `db:"credits" json:"credits"`
	Level        int          `db:"level" json:"level"`
	DepartmentID *string      `db:"department_id" json:"department_id,omitempty"`
	SemesterID   string       `db:"semester_id" json:"semester_id"`
	LecturerID   *string      `db:"lecturer_id" json:"lecturer_id,omitempty"`
	MaxCapacity  int          `db:"max_capacity" json:"max_capacity"`
	Status       CourseStatus `db:"status" json:"status"`
	Description  string       `db:"description" json:"description,omitempty"`
	Version      int64        `db:"version" json:"version"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches a course with its derived enrollment count.
type CourseDetail struct {
	Course
	EnrolledCount int `db:"enrolled_count" json:"enrolled_count"`
}

// AvailableSeats reports the remaining capacity. Never negative even when
// override enrollments pushed the count past capacity.
func (c CourseDetail) AvailableSeats() int {
	remaining := c.MaxCapacity - c.EnrolledCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	SemesterID   string
	DepartmentID string
	Status       CourseStatus
	Level        int
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
