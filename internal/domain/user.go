package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a firm staff member (attorney, paralegal, admin) with console
// access. End-user clients are not users; they are identified by their
// session's ClientIdentity and, after securing, the bound subject.
type User struct {
	ID           uuid.UUID `json:"id"`
	FirmID       uuid.UUID `json:"firm_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // "admin", "attorney", "staff"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, firmID, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, firmID uuid.UUID, email string) (*User, error)
	ListByFirm(ctx context.Context, firmID uuid.UUID) ([]*User, error)
	// CountAll returns the number of staff accounts across all firms.
	CountAll(ctx context.Context) (int, error)
}
