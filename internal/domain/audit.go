package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a security-relevant event: a secure transition, an
// identity-mismatch rejection, a conflict override, or a handoff.
type AuditEntry struct {
	ID         uuid.UUID
	FirmID     uuid.UUID
	ActorType  string // "user", "client", "system"
	ActorID    string
	Action     string // "session.secured", "session.identity_mismatch", "conflict.override", "session.handoff"
	Resource   string // "session", "conflict_entry"
	ResourceID uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
	ListByResource(ctx context.Context, firmID uuid.UUID, resource string, resourceID uuid.UUID) ([]*AuditEntry, error)
}
