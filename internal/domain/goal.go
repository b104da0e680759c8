package domain

import "time"

// GoalPriority ranks how strongly a goal gates the intake handoff.
// Only critical and required goals gate completion; optional goals never do.
type GoalPriority string

const (
	GoalPriorityCritical GoalPriority = "critical"
	GoalPriorityRequired GoalPriority = "required"
	GoalPriorityOptional GoalPriority = "optional"
)

// Gating reports whether a goal with this priority must be completed
// before the session counts as ready for handoff.
func (p GoalPriority) Gating() bool {
	return p == GoalPriorityCritical || p == GoalPriorityRequired
}

type GoalState string

const (
	GoalStatePending   GoalState = "pending"
	GoalStatePartial   GoalState = "partial"
	GoalStateCompleted GoalState = "completed"
)

// Valid reports whether the state is one of the known enum values. Model
// suggestions arrive as free-form strings and must pass this check before
// anything persists them.
func (s GoalState) Valid() bool {
	switch s {
	case GoalStatePending, GoalStatePartial, GoalStateCompleted:
		return true
	default:
		return false
	}
}

func (s GoalState) rank() int {
	switch s {
	case GoalStatePartial:
		return 1
	case GoalStateCompleted:
		return 2
	default:
		return 0
	}
}

// ValidTransition reports whether a goal may move from s to next. Goals
// only move forward: pending -> partial -> completed, never back, and a
// same-state change is not a transition.
func (s GoalState) ValidTransition(next GoalState) bool {
	return next.Valid() && next.rank() > s.rank()
}

// GoalCategory identifies the kind of information a goal collects.
type GoalCategory string

const (
	GoalCategoryIdentification    GoalCategory = "identification"
	GoalCategoryLegalContext      GoalCategory = "legal_context"
	GoalCategoryConflictReadiness GoalCategory = "conflict_readiness"
	GoalCategoryIncidentDetails   GoalCategory = "incident_details"
	GoalCategoryMedical           GoalCategory = "medical_treatment"
	GoalCategoryEmployment        GoalCategory = "employment_details"
	GoalCategoryOpposingParty     GoalCategory = "opposing_party"
)

// GoalDefinition is the template a session goal is seeded from.
type GoalDefinition struct {
	ID         string       `json:"id"`
	Priority   GoalPriority `json:"priority"`
	Category   GoalCategory `json:"category"`
	PromptHint string       `json:"prompt_hint,omitempty"`
}

// Goal is one data-gathering objective tracked on a session. A goal in
// state completed always carries non-empty evidence drawn from conversation
// content or identity fields.
type Goal struct {
	ID         string       `json:"id"`
	Priority   GoalPriority `json:"priority"`
	Category   GoalCategory `json:"category"`
	PromptHint string       `json:"prompt_hint,omitempty"`
	State      GoalState    `json:"state"`
	Evidence   string       `json:"evidence,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewGoal seeds a pending goal from a definition.
func NewGoal(def GoalDefinition, now time.Time) Goal {
	return Goal{
		ID:         def.ID,
		Priority:   def.Priority,
		Category:   def.Category,
		PromptHint: def.PromptHint,
		State:      GoalStatePending,
		UpdatedAt:  now,
	}
}

// GoalUpdate is a proposed state change for one goal, produced by the
// assessor (or validated from a model suggestion) and applied by the
// conversation state machine.
type GoalUpdate struct {
	GoalID   string    `json:"goal_id"`
	NewState GoalState `json:"new_state"`
	Evidence string    `json:"evidence,omitempty"`
}
