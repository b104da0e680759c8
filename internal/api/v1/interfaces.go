package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/intake"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Firms() domain.FirmRepository
	Users() domain.UserRepository
	Sessions() domain.SessionRepository
	Audit() domain.AuditRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, firmID uuid.UUID, email, password, name, role string) (*domain.User, error)
	Login(ctx context.Context, firmID uuid.UUID, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// AssertionVerifier validates an identity-provider login assertion.
// *auth.AssertionVerifier satisfies this interface.
type AssertionVerifier interface {
	Verify(assertion string) (*intake.VerifiedIdentity, error)
}

// IntakeOrchestrator abstracts the conversational turn pipeline for
// handler testing. *intake.Orchestrator satisfies this interface.
type IntakeOrchestrator interface {
	StartSession(ctx context.Context, firmID uuid.UUID, categoryHint domain.MatterCategory) (*domain.IntakeSession, string, error)
	HandleTurn(ctx context.Context, sessionID uuid.UUID, userMessage string) (*intake.TurnResult, error)
}

// IntakeMachine abstracts the state machine operations reachable over
// HTTP. *intake.Machine satisfies this interface.
type IntakeMachine interface {
	Secure(ctx context.Context, sessionID uuid.UUID, verified intake.VerifiedIdentity) (*domain.IntakeSession, error)
	ResumeByToken(ctx context.Context, token string) (*domain.IntakeSession, error)
	GetSession(ctx context.Context, firmID, sessionID uuid.UUID) (*domain.IntakeSession, error)
	OverrideConflict(ctx context.Context, sessionID, actorID uuid.UUID, reason string) (*domain.IntakeSession, error)
	CloseSession(ctx context.Context, firmID, sessionID, actorID uuid.UUID) (*domain.IntakeSession, error)
}

// ConflictIndex abstracts the vector store behind conflict list writes.
// *conflictlist.Store satisfies this interface.
type ConflictIndex interface {
	Add(ctx context.Context, entry *domain.ConflictEntry) error
}

// ConflictEntryStore abstracts the durable conflict list rows.
// *postgres.ConflictEntryRepo satisfies this interface.
type ConflictEntryStore interface {
	Create(ctx context.Context, e *domain.ConflictEntry) error
	ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.ConflictEntry, error)
}
