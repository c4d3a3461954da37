package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID               string    `db:"id" json:"id"`
	UserID           *string   `db:"user_id" json:"user_id,omitempty"`
	StudentNumber    string    `db:"student_number" json:"student_number"`
	Program          string    `db:"program" json:"program"`
	YearOfStudy      int       `db:"year_of_study" json:"year_of_study"`
	CreditsCompleted int       `db:"credits_completed" json:"credits_completed"`
	CurrentGPA       *float64  `db:"current_gpa" json:"current_gpa,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains a student with the owning user's display fields.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Program   string
	Year      int
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
