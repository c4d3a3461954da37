package models

import "time"

// RequirementKind tags what a course requirement constrains.
type RequirementKind string

const (
	RequirementPrerequisite RequirementKind = "PREREQUISITE"
	RequirementCorequisite  RequirementKind = "COREQUISITE"
	RequirementYear         RequirementKind = "YEAR"
	RequirementCredit       RequirementKind = "CREDIT"
	RequirementProgram      RequirementKind = "PROGRAM"
	RequirementGPA          RequirementKind = "GPA"
)

// CourseRequirement is a directed edge from a course to zero or one
// prerequisite course plus optional scalar constraints. A tagged variant, not
// a hierarchy: Kind says which of the optional fields matter.
type CourseRequirement struct {
	ID                   string          `db:"id" json:"id"`
	CourseID             string          `db:"course_id" json:"course_id"`
	PrerequisiteCourseID *string         `db:"prerequisite_course_id" json:"prerequisite_course_id,omitempty"`
	MinGrade             *string         `db:"min_grade" json:"min_grade,omitempty"`
	MinCreditsCompleted  *int            `db:"min_credits_completed" json:"min_credits_completed,omitempty"`
	MinYear              *int            `db:"min_year" json:"min_year,omitempty"`
	RequiredProgram      *string         `db:"required_program" json:"required_program,omitempty"`
	MinGPA               *float64        `db:"min_gpa" json:"min_gpa,omitempty"`
	Kind                 RequirementKind `db:"kind" json:"kind"`
	Mandatory            bool            `db:"mandatory" json:"mandatory"`
	Description          string          `db:"description" json:"description,omitempty"`
	CreatedBy            *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// RequirementDetail carries the prerequisite course's display fields.
type RequirementDetail struct {
	CourseRequirement
	PrerequisiteCode  *string `db:"prerequisite_code" json:"prerequisite_code,omitempty"`
	PrerequisiteTitle *string `db:"prerequisite_title" json:"prerequisite_title,omitempty"`
}
