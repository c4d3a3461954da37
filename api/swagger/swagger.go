package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Allocation API",
        "description": "Course-seat allocation with optimistic concurrency control",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "auth", "description": "Authentication"},
        {"name": "portal", "description": "Student portal"},
        {"name": "courses", "description": "Course catalog and requirements"},
        {"name": "requests", "description": "Enrollment request workflow"},
        {"name": "enrollments", "description": "Enrollment ledger"},
        {"name": "admin", "description": "Privileged overrides and statistics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses": {
            "get": {
                "tags": ["portal"],
                "summary": "Browse courses open for enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "semester_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses/{courseId}/eligibility": {
            "get": {
                "tags": ["portal"],
                "summary": "Evaluate enrollment eligibility, reporting every unmet requirement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EligibilityVerdict"}}
                }
            }
        },
        "/portal/transcript": {
            "get": {
                "tags": ["portal"],
                "summary": "Get the student's transcript",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/transcript/export": {
            "get": {
                "tags": ["portal"],
                "summary": "Download the transcript as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/portal/schedule": {
            "get": {
                "tags": ["portal"],
                "summary": "Get the student's active-semester schedule",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["courses"],
                "summary": "List courses with derived seat counts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "semester_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["courses"],
                "summary": "Create a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/requirements": {
            "get": {
                "tags": ["courses"],
                "summary": "List a course's requirements",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["courses"],
                "summary": "Attach a requirement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequirementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["requests"],
                "summary": "List enrollment requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "course_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["requests"],
                "summary": "Submit an enrollment request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate request or already enrolled"}
                }
            }
        },
        "/requests/{id}/process": {
            "post": {
                "tags": ["requests"],
                "summary": "Decide a request; approval claims a seat",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessRequestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Course full or concurrent update"},
                    "422": {"description": "Requirements not met"}
                }
            }
        },
        "/requests/bulk-approve": {
            "post": {
                "tags": ["requests"],
                "summary": "Approve a batch, reporting per-id outcomes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/cancel": {
            "post": {
                "tags": ["requests"],
                "summary": "Cancel a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request is not pending"}
                }
            }
        },
        "/enrollments/{id}/drop": {
            "post": {
                "tags": ["enrollments"],
                "summary": "Drop an enrollment, freeing the seat",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Enrollment is terminal"}
                }
            }
        },
        "/admin/force-enroll": {
            "post": {
                "tags": ["admin"],
                "summary": "Force-enroll a student, optionally bypassing capacity and prerequisites",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForceEnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{id}/capacity": {
            "put": {
                "tags": ["admin"],
                "summary": "Emergency capacity change, version-checked",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmergencyCapacityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent update"}
                }
            }
        },
        "/admin/statistics": {
            "get": {
                "tags": ["admin"],
                "summary": "System statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateCourseRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "title": {"type": "string"},
                "credits": {"type": "integer"},
                "level": {"type": "integer"},
                "department_id": {"type": "string"},
                "semester_id": {"type": "string"},
                "lecturer_id": {"type": "string"},
                "max_capacity": {"type": "integer"},
                "description": {"type": "string"}
            },
            "required": ["code", "title", "credits", "level", "semester_id", "max_capacity"]
        },
        "CreateRequirementRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["PREREQUISITE", "COREQUISITE", "YEAR", "CREDIT", "PROGRAM", "GPA"]},
                "prerequisite_course_id": {"type": "string"},
                "min_grade": {"type": "string"},
                "min_credits_completed": {"type": "integer"},
                "min_year": {"type": "integer"},
                "required_program": {"type": "string"},
                "min_gpa": {"type": "number"},
                "mandatory": {"type": "boolean"},
                "description": {"type": "string"}
            },
            "required": ["kind"]
        },
        "SubmitRequestRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "course_id": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["student_id", "course_id"]
        },
        "ProcessRequestRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED", "WAITLISTED"]},
                "reason": {"type": "string"}
            },
            "required": ["status"]
        },
        "BulkApproveRequest": {
            "type": "object",
            "properties": {
                "request_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["request_ids"]
        },
        "ForceEnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "course_id": {"type": "string"},
                "bypass_capacity": {"type": "boolean"},
                "bypass_prerequisites": {"type": "boolean"},
                "reason": {"type": "string"}
            },
            "required": ["student_id", "course_id", "reason"]
        },
        "EmergencyCapacityRequest": {
            "type": "object",
            "properties": {
                "max_capacity": {"type": "integer"},
                "reason": {"type": "string"}
            },
            "required": ["max_capacity", "reason"]
        },
        "EligibilityVerdict": {
            "type": "object",
            "properties": {
                "eligible": {"type": "boolean"},
                "message": {"type": "string"},
                "has_requirements": {"type": "boolean"},
                "prerequisites_met": {"type": "boolean"},
                "gpa_met": {"type": "boolean"},
                "year_met": {"type": "boolean"},
                "requirements_met": {"type": "boolean"},
                "seats_available": {"type": "boolean"},
                "already_enrolled": {"type": "boolean"},
                "unmet_requirements": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
