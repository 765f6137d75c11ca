// internal/models/audit.go
package models

import "time"

// AuditKind classifies a notarized event.
type AuditKind string

const (
	AuditApplication AuditKind = "APPLICATION"
	AuditAward       AuditKind = "AWARD"
)

// AuditRecord is an append-only reference to a notarized event. Reference
// holds the external ledger transaction hash, or a locally synthesized one
// when the ledger was unreachable.
type AuditRecord struct {
	ID            string    `json:"id"`
	Kind          AuditKind `json:"kind"`
	Reference     string    `json:"reference"`
	ApplicationID string    `json:"applicationId"`
	AwardID       *string   `json:"awardId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
