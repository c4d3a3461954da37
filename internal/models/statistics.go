package models

import "time"

// SystemStatistics aggregates platform-wide counters for the admin dashboard.
type SystemStatistics struct {
	TotalStudents         int       `json:"total_students"`
	TotalCourses          int       `json:"total_courses"`
	TotalEnrollments      int       `json:"total_enrollments"`
	TotalDepartments      int       `json:"total_departments"`
	ActiveSemesters       int       `json:"active_semesters"`
	PendingRequests       int       `json:"pending_requests"`
	AverageGPA            float64   `json:"average_gpa"`
	TotalCreditsAllocated int       `json:"total_credits_allocated"`
	GeneratedAt           time.Time `json:"generated_at"`
}
