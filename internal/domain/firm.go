package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Firm is the tenant. Every session, user, conflict entry, and audit row
// is scoped by firm ID.
type Firm struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	DefaultCategory MatterCategory `json:"default_category"`
	SlackChannel    string         `json:"slack_channel,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type FirmRepository interface {
	Create(ctx context.Context, f *Firm) error
	GetByID(ctx context.Context, id uuid.UUID) (*Firm, error)
	GetBySlug(ctx context.Context, slug string) (*Firm, error)
	Update(ctx context.Context, f *Firm) error
	List(ctx context.Context) ([]*Firm, error)
}

// ConflictEntry is one known party on a firm's conflict list: an existing
// client, an adverse party, or any other entity representation of whom
// would create a conflict of interest.
type ConflictEntry struct {
	ID        uuid.UUID `json:"id"`
	FirmID    uuid.UUID `json:"firm_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // "client", "adverse_party", "related_entity"
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
