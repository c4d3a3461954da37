package models

// EligibilityVerdict is the structured result of evaluating every enrollment
// precondition for one (student, course) pair. All checks are reported even
// when an earlier one fails.
type EligibilityVerdict struct {
	Eligible          bool     `json:"eligible"`
	Message           string   `json:"message"`
	HasRequirements   bool     `json:"has_requirements"`
	PrerequisitesMet  bool     `json:"prerequisites_met"`
	GPAMet            bool     `json:"gpa_met"`
	YearMet           bool     `json:"year_met"`
	RequirementsMet   bool     `json:"requirements_met"`
	SeatsAvailable    bool     `json:"seats_available"`
	AlreadyEnrolled   bool     `json:"already_enrolled"`
	UnmetRequirements []string `json:"unmet_requirements"`
}
