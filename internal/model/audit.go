package model

import "time"

// AuditLog is an append-only trail of credit and reservation
// mutations.  Every credit ledger change writes one row here so a
// package's used_credits can always be explained from history.
type AuditLog struct {
	ID        uint64    // audit_logs.id
	ActorID   *uint64   // audit_logs.actor_id (nullable, nil for system actions)
	Action    string    // audit_logs.action (e.g. "credit.consume")
	Entity    string    // audit_logs.entity (e.g. "package")
	EntityID  uint64    // audit_logs.entity_id
	Detail    string    // audit_logs.detail
	CreatedAt time.Time // audit_logs.created_at
}
