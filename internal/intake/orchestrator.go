package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/llm"
	redisstore "github.com/casefront/engage/internal/store/redis"
)

// ErrEmptyMessage is returned when a turn arrives with no content.
var ErrEmptyMessage = errors.New("intake: empty message")

const (
	degradedReply = "I'm sorry, I'm having trouble responding right now. Your message has been saved; please try again in a moment."
	holdReply     = "Thank you. Before we gather any further details, someone at the firm needs to review your information. We'll be in touch shortly."
)

// Publisher abstracts the pub/sub publish used to stream live turns to
// the staff review surface.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// GoalSource supplies supplemental goal definitions for a matter
// category. Optional collaborator: failure just means no extra goals.
type GoalSource interface {
	SupplementalGoals(ctx context.Context, category domain.MatterCategory) ([]domain.GoalDefinition, error)
}

// HandoffNotifier tells firm staff a session is ready for review.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, s *domain.IntakeSession) error
}

// TurnResult is the externally visible subset of session state returned
// to the chat client after a turn.
type TurnResult struct {
	SessionID       uuid.UUID             `json:"session_id"`
	Phase           domain.Phase          `json:"phase"`
	Reply           string                `json:"reply"`
	Goals           []domain.Goal         `json:"goals"`
	ConflictStatus  domain.ConflictStatus `json:"conflict_status"`
	ReadyForHandoff bool                  `json:"ready_for_handoff"`
	SuggestLogin    bool                  `json:"suggest_login"`
	Degraded        bool                  `json:"degraded,omitempty"`
}

// Orchestrator drives one conversational turn end to end. All
// collaborators arrive through the constructor; there is no hidden
// global lookup.
type Orchestrator struct {
	machine    *Machine
	assessor   *GoalAssessor
	detector   *ConflictDetector
	completer  llm.Completer
	prompts    *PromptBuilder
	goalSource GoalSource      // may be nil
	pubsub     Publisher       // may be nil
	notifier   HandoffNotifier // may be nil

	completionTimeout time.Duration
	turnTimeout       time.Duration
}

func NewOrchestrator(
	machine *Machine,
	assessor *GoalAssessor,
	detector *ConflictDetector,
	completer llm.Completer,
	prompts *PromptBuilder,
	goalSource GoalSource,
	pubsub Publisher,
	notifier HandoffNotifier,
	completionTimeout time.Duration,
) *Orchestrator {
	if completionTimeout <= 0 {
		completionTimeout = 20 * time.Second
	}

	return &Orchestrator{
		machine:           machine,
		assessor:          assessor,
		detector:          detector,
		completer:         completer,
		prompts:           prompts,
		goalSource:        goalSource,
		pubsub:            pubsub,
		notifier:          notifier,
		completionTimeout: completionTimeout,
		turnTimeout:       2*completionTimeout + 30*time.Second,
	}
}

// StartSession creates a session and merges in supplemental goals from
// the document-search collaborator. An unreachable goal source is logged
// and skipped.
func (o *Orchestrator) StartSession(ctx context.Context, firmID uuid.UUID, categoryHint domain.MatterCategory) (*domain.IntakeSession, string, error) {
	s, token, err := o.machine.CreateSession(ctx, firmID, categoryHint)
	if err != nil {
		return nil, "", fmt.Errorf("intake.Orchestrator.StartSession: %w", err)
	}

	if o.goalSource != nil {
		defs, srcErr := o.goalSource.SupplementalGoals(ctx, s.Category)
		if srcErr != nil {
			log.Warn().Err(srcErr).Str("category", string(s.Category)).Msg("intake: supplemental goal source unavailable")
		} else if len(defs) > 0 {
			if s, err = o.machine.AddGoals(ctx, s.ID, defs); err != nil {
				return nil, "", fmt.Errorf("intake.Orchestrator.StartSession: %w", err)
			}
		}
	}

	return s, token, nil
}

// HandleTurn runs the full turn pipeline: append the user message, get a
// model reply, merge identity, re-assess goals, re-check conflicts when
// identity grew, append the agent reply, and flag handoff when every
// gating goal is complete.
//
// The turn holds the session lock throughout, so two turns for the same
// session never interleave. The turn is detached from the caller's
// cancellation: a client disconnect does not roll back progress, only
// the bounded turn timeout does.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID uuid.UUID, userMessage string) (*TurnResult, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: %w", ErrEmptyMessage)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.turnTimeout)
	defer cancel()

	release := o.machine.acquire(sessionID)
	defer release()

	s, err := o.machine.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: %w", err)
	}

	// Step 2: persist the user's message first so no input is lost even
	// when later steps degrade.
	if err := o.machine.appendMessage(ctx, s, domain.MessageRoleUser, userMessage); err != nil {
		return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: append user message: %w", err)
	}
	o.publishTurn(ctx, s, domain.MessageRoleUser, userMessage)

	// A detected conflict without an override blocks further data
	// collection that implies representation.
	if s.OnConflictHold() {
		if err := o.machine.appendMessage(ctx, s, domain.MessageRoleAgent, holdReply); err != nil {
			return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: append hold reply: %w", err)
		}
		o.publishTurn(ctx, s, domain.MessageRoleAgent, holdReply)
		return o.result(s, holdReply, false, false), nil
	}

	// Steps 3-4: completion with one retry.
	reply, hints, ok := o.complete(ctx, s)
	if !ok {
		// The user's message is already committed; surface the apology
		// without recording an assistant turn.
		log.Error().Str("session_id", s.ID.String()).Msg("intake: completion failed after retry, returning degraded reply")
		return o.result(s, degradedReply, false, true), nil
	}

	// Step 5: merge identity hints.
	identityGrew := false
	if hints != nil {
		partial := domain.ClientIdentity{
			Name:            hints.Name,
			Organization:    hints.Organization,
			CaseDescription: hints.CaseDescription,
			Emails:          hints.Emails,
			Phones:          hints.Phones,
		}
		identityGrew, err = o.machine.mergeIdentity(ctx, s, partial)
		if err != nil {
			return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: merge identity: %w", err)
		}
	}

	// Step 6: assess goals; the assessor is the authority, model
	// suggestions pass only if validated against the same rules.
	updates := o.assessor.Assess(s)
	if hints != nil && len(hints.Goals) > 0 {
		updates = mergeUpdates(updates, o.assessor.ValidateSuggestions(s, toGoalUpdates(hints.Goals)))
	}
	if err := o.machine.applyGoalUpdates(ctx, s, updates); err != nil {
		return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: apply goal updates: %w", err)
	}

	// Step 7: re-run the conflict check when new identity was learned.
	// A degraded search backend yields pending inside the detector; the
	// turn continues either way.
	if identityGrew {
		check := o.detector.Check(ctx, s.FirmID, s.Identity.Fragments())
		if err := o.machine.recordConflict(ctx, s, check.Status, check.Confidence); err != nil {
			return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: record conflict: %w", err)
		}
		if check.Status == domain.ConflictStatusDetected {
			o.publishFirmEvent(ctx, s, EventConflictDetected, map[string]float64{"confidence": check.Confidence})
		}
	}

	// Step 8: append the agent reply.
	if err := o.machine.appendMessage(ctx, s, domain.MessageRoleAgent, reply); err != nil {
		return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: append agent reply: %w", err)
	}
	o.publishTurn(ctx, s, domain.MessageRoleAgent, reply)

	// Step 9: flag handoff once all gating goals are complete. Login is
	// only ever suggested, never forced.
	suggestLogin := false
	if s.AllGoalsComplete() && !s.ReadyForHandoff {
		newly, err := o.machine.markReadyForHandoff(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("intake.Orchestrator.HandleTurn: mark handoff: %w", err)
		}
		if newly {
			suggestLogin = s.Phase == domain.PhasePreLogin
			o.publishFirmEvent(ctx, s, EventReadyForHandoff, nil)
			o.notifyHandoff(ctx, s)
		}
	}

	return o.result(s, reply, suggestLogin, false), nil
}

// complete invokes the completion backend with a bounded timeout and a
// single retry on the same context.
func (o *Orchestrator) complete(ctx context.Context, s *domain.IntakeSession) (reply string, hints *llm.IdentityHints, ok bool) {
	req := o.prompts.Build(s)

	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.completionTimeout)
		resp, err := o.completer.Complete(callCtx, req)
		cancel()

		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("session_id", s.ID.String()).Msg("intake: completion attempt failed")
			continue
		}

		reply, hints = llm.ParseHints(resp.Content)
		if reply == "" {
			reply = resp.Content
		}
		return reply, hints, true
	}

	return "", nil, false
}

func (o *Orchestrator) notifyHandoff(ctx context.Context, s *domain.IntakeSession) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyHandoff(ctx, s); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("intake: handoff notification failed")
	}
}

// publishTurn streams a turn to the session's live review channel.
func (o *Orchestrator) publishTurn(ctx context.Context, s *domain.IntakeSession, role domain.MessageRole, content string) {
	publishEvent(ctx, o.pubsub, redisstore.IntakeChannel(s.ID), IntakeEvent{
		Type:      EventMessage,
		SessionID: s.ID,
		Data:      map[string]string{"role": string(role), "content": content},
	})
}

// publishFirmEvent streams a milestone to the firm-wide feed.
func (o *Orchestrator) publishFirmEvent(ctx context.Context, s *domain.IntakeSession, eventType string, data any) {
	publishEvent(ctx, o.pubsub, redisstore.FirmChannel(s.FirmID), IntakeEvent{
		Type:      eventType,
		SessionID: s.ID,
		Data:      data,
	})
}

func (o *Orchestrator) result(s *domain.IntakeSession, reply string, suggestLogin, degraded bool) *TurnResult {
	goals := make([]domain.Goal, len(s.Goals))
	copy(goals, s.Goals)

	return &TurnResult{
		SessionID:       s.ID,
		Phase:           s.Phase,
		Reply:           reply,
		Goals:           goals,
		ConflictStatus:  s.Conflict.Status,
		ReadyForHandoff: s.ReadyForHandoff,
		SuggestLogin:    suggestLogin,
		Degraded:        degraded,
	}
}

func toGoalUpdates(suggestions []llm.GoalSuggestion) []domain.GoalUpdate {
	out := make([]domain.GoalUpdate, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, domain.GoalUpdate{
			GoalID:   s.GoalID,
			NewState: domain.GoalState(s.State),
			Evidence: s.Evidence,
		})
	}
	return out
}

// mergeUpdates appends validated suggestions that do not already have an
// assessor update for the same goal. Assessor updates win.
func mergeUpdates(primary, extra []domain.GoalUpdate) []domain.GoalUpdate {
	seen := make(map[string]struct{}, len(primary))
	for _, u := range primary {
		seen[u.GoalID] = struct{}{}
	}
	for _, u := range extra {
		if _, dup := seen[u.GoalID]; dup {
			continue
		}
		seen[u.GoalID] = struct{}{}
		primary = append(primary, u)
	}
	return primary
}
