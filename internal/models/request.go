package models

import "time"

// RequestStatus represents the lifecycle of an enrollment request.
type RequestStatus string

// Request statuses. APPROVED, REJECTED and CANCELLED are terminal;
// WAITLISTED stays open and may be re-processed.
const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusWaitlisted RequestStatus = "WAITLISTED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

// IsTerminal reports whether the request accepts no further transitions.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// EnrollmentRequest is a student's petition for a seat. At most one open
// (non-terminal) request exists per (student, course) pair.
type EnrollmentRequest struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	CourseID        string        `db:"course_id" json:"course_id"`
	Status          RequestStatus `db:"status" json:"status"`
	RequestReason   string        `db:"request_reason" json:"request_reason,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	RequestedAt     time.Time     `db:"requested_at" json:"requested_at"`
	ProcessedAt     *time.Time    `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail enriches a request with student and course display fields.
type RequestDetail struct {
	EnrollmentRequest
	StudentNumber string `db:"student_number" json:"student_number"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
}

// RequestFilter provides filters for listing enrollment requests.
type RequestFilter struct {
	StudentID string
	CourseID  string
	Status    RequestStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RequestOutcome reports the per-id result of a bulk operation.
type RequestOutcome struct {
	RequestID string         `json:"request_id"`
	Success   bool           `json:"success"`
	Status    RequestStatus  `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   []string       `json:"details,omitempty"`
	Request   *RequestDetail `json:"request,omitempty"`
}
