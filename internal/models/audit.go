package models

import "time"

// AuditLog records a privileged or allocation-changing action.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    string    `db:"actor_id" json:"actor_id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	IP         string    `db:"ip" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Audit action names recorded by the allocation and admin flows.
const (
	AuditActionForceEnroll     = "FORCE_ENROLL"
	AuditActionForceDrop       = "FORCE_DROP"
	AuditActionCapacityChange  = "EMERGENCY_CAPACITY_CHANGE"
	AuditActionRequestDecision = "REQUEST_DECISION"
	AuditActionLogin           = "LOGIN"
)
