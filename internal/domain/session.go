package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Phase is the security level of an intake session. The only allowed
// transition is pre_login -> secured, fired exactly once when the end user
// authenticates. It never reverts.
type Phase string

const (
	PhasePreLogin Phase = "pre_login"
	PhaseSecured  Phase = "secured"
)

// ValidTransition checks if a phase transition is allowed.
// Allowed: pre_login->secured. Everything else is rejected.
func (p Phase) ValidTransition(to Phase) bool {
	return p == PhasePreLogin && to == PhaseSecured
}

type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAgent MessageRole = "agent"
)

// Message is one turn in the conversation. Messages are append-only:
// content and order never change after creation.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "pending"
	ConflictStatusClear    ConflictStatus = "clear"
	ConflictStatusDetected ConflictStatus = "conflict_detected"
)

// ConflictCheck is the latest conflict-of-interest determination for a
// session, with the similarity confidence behind it.
type ConflictCheck struct {
	Status     ConflictStatus `json:"status"`
	Confidence float64        `json:"confidence"`
	CheckedAt  time.Time      `json:"checked_at,omitzero"`
}

// ConflictOverride records an explicit staff decision to proceed despite a
// detected conflict. Required before data collection continues once the
// status is conflict_detected.
type ConflictOverride struct {
	ActorID   uuid.UUID `json:"actor_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// MatterCategory is the practice area a session's goal set is seeded from.
type MatterCategory string

const (
	MatterPersonalInjury MatterCategory = "personal_injury"
	MatterFamilyLaw      MatterCategory = "family_law"
	MatterEmployment     MatterCategory = "employment"
	MatterGeneral        MatterCategory = "general"
)

// IntakeSession is the aggregate root for one client-intake conversation.
// All mutation goes through the intake state machine, which is the single
// writer per session ID.
type IntakeSession struct {
	ID       uuid.UUID      `json:"id"`
	FirmID   uuid.UUID      `json:"firm_id"`
	Phase    Phase          `json:"phase"`
	Category MatterCategory `json:"category"`

	Messages []Message      `json:"messages,omitempty"`
	Identity ClientIdentity `json:"identity"`
	Goals    []Goal         `json:"goals"`

	Conflict         ConflictCheck     `json:"conflict"`
	ConflictOverride *ConflictOverride `json:"conflict_override,omitempty"`

	// BoundSubject is the verified identity-provider subject once secured,
	// or the subject learned pre-login that a later secure() must match.
	BoundSubject string `json:"bound_subject,omitempty"`

	// ResumeTokenHash is the SHA-256 of the resume token. The plaintext is
	// returned once at creation and never stored. Cleared on secure().
	ResumeTokenHash string `json:"-"`

	ReadyForHandoff bool       `json:"ready_for_handoff"`
	HandoffAt       *time.Time `json:"handoff_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Closed reports whether the session has been finalized by firm staff.
func (s *IntakeSession) Closed() bool {
	return s.ClosedAt != nil
}

// AllGoalsComplete is true iff every critical and required goal is
// completed. Optional goals never gate the result.
func (s *IntakeSession) AllGoalsComplete() bool {
	for _, g := range s.Goals {
		if g.Priority.Gating() && g.State != GoalStateCompleted {
			return false
		}
	}
	return true
}

// GoalByID returns a pointer into the session's goal list, or nil.
func (s *IntakeSession) GoalByID(goalID string) *Goal {
	for i := range s.Goals {
		if s.Goals[i].ID == goalID {
			return &s.Goals[i]
		}
	}
	return nil
}

// OnConflictHold reports whether data collection is blocked: a detected
// conflict with no recorded override.
func (s *IntakeSession) OnConflictHold() bool {
	return s.Conflict.Status == ConflictStatusDetected && s.ConflictOverride == nil
}

// SessionRepository persists intake session aggregates. Messages are
// append-only; Update never touches existing message rows.
type SessionRepository interface {
	Create(ctx context.Context, s *IntakeSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*IntakeSession, error)
	GetByResumeTokenHash(ctx context.Context, hash string) (*IntakeSession, error)
	Update(ctx context.Context, s *IntakeSession) error
	AppendMessage(ctx context.Context, m *Message) error
	ListByFirm(ctx context.Context, firmID uuid.UUID, readyOnly bool, limit, offset int) ([]*IntakeSession, error)
}
