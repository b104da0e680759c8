package intake

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/casefront/engage/internal/domain"
	redisstore "github.com/casefront/engage/internal/store/redis"
)

// VerifiedIdentity is the assertion an external authentication provider
// supplies when the end user logs in. The machine treats it as opaque
// beyond the subject and the optional profile claims.
type VerifiedIdentity struct {
	Subject string
	Email   string
	Name    string
}

// Machine is the conversation state machine: the single writer of intake
// session state. All mutating operations on one session are serialized
// through a per-session lock; operations on different sessions run fully
// in parallel.
type Machine struct {
	sessions domain.SessionRepository
	registry *GoalRegistry
	audit    domain.AuditRepository
	pubsub   Publisher // optional, set via UsePublisher
	tokenTTL time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewMachine creates the state machine. tokenTTL bounds how long a resume
// token stays valid after the session's last activity.
func NewMachine(sessions domain.SessionRepository, registry *GoalRegistry, audit domain.AuditRepository, tokenTTL time.Duration) *Machine {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &Machine{
		sessions: sessions,
		registry: registry,
		audit:    audit,
		tokenTTL: tokenTTL,
		locks:    make(map[uuid.UUID]*sessionLock),
	}
}

// UsePublisher enables firm-wide event publishing for state transitions
// the machine owns directly, such as a session being secured.
func (m *Machine) UsePublisher(p Publisher) {
	m.pubsub = p
}

// acquire takes the per-session lock. The returned release must be called
// exactly once. Lock entries are refcounted so the table does not grow
// with dead sessions.
func (m *Machine) acquire(sessionID uuid.UUID) (release func()) {
	m.mu.Lock()
	sl, ok := m.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		m.locks[sessionID] = sl
	}
	sl.refs++
	m.mu.Unlock()

	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()

		m.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// CreateSession seeds a new pre-login session with the default goal set
// for the firm's matter category. Returns the session and the plaintext
// resume token; the token is never stored, only its hash.
func (m *Machine) CreateSession(ctx context.Context, firmID uuid.UUID, categoryHint domain.MatterCategory) (*domain.IntakeSession, string, error) {
	if categoryHint == "" {
		categoryHint = domain.MatterGeneral
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("intake.Machine.CreateSession: session id: %w", err)
	}

	token, tokenHash, err := newResumeToken()
	if err != nil {
		return nil, "", fmt.Errorf("intake.Machine.CreateSession: %w", err)
	}

	now := time.Now()
	defs := m.registry.GoalsFor(categoryHint)
	goals := make([]domain.Goal, 0, len(defs))
	for _, def := range defs {
		goals = append(goals, domain.NewGoal(def, now))
	}

	s := &domain.IntakeSession{
		ID:              id,
		FirmID:          firmID,
		Phase:           domain.PhasePreLogin,
		Category:        categoryHint,
		Goals:           goals,
		Conflict:        domain.ConflictCheck{Status: domain.ConflictStatusPending},
		ResumeTokenHash: tokenHash,
		CreatedAt:       now,
		LastActivityAt:  now,
	}

	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, "", fmt.Errorf("intake.Machine.CreateSession: %w", err)
	}

	return s, token, nil
}

// AddGoals merges supplemental goal definitions into the session's goal
// list, de-duplicated by goal ID.
func (m *Machine) AddGoals(ctx context.Context, sessionID uuid.UUID, defs []domain.GoalDefinition) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.AddGoals: %w", err)
	}

	if err := m.addGoals(ctx, s, defs); err != nil {
		return nil, fmt.Errorf("intake.Machine.AddGoals: %w", err)
	}
	return s, nil
}

// AppendMessage appends one turn to the conversation and bumps the
// session's last activity. Messages are never mutated or reordered.
func (m *Machine) AppendMessage(ctx context.Context, sessionID uuid.UUID, role domain.MessageRole, content string) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.AppendMessage: %w", err)
	}

	if err := m.appendMessage(ctx, s, role, content); err != nil {
		return nil, fmt.Errorf("intake.Machine.AppendMessage: %w", err)
	}
	return s, nil
}

// MergeIdentity folds non-empty partial identity fields into the session.
// No field is ever cleared.
func (m *Machine) MergeIdentity(ctx context.Context, sessionID uuid.UUID, partial domain.ClientIdentity) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.MergeIdentity: %w", err)
	}

	if _, err := m.mergeIdentity(ctx, s, partial); err != nil {
		return nil, fmt.Errorf("intake.Machine.MergeIdentity: %w", err)
	}
	return s, nil
}

// UpdateGoalProgress moves one goal to a new state. Transitioning to
// completed without evidence is rejected with ErrGoalEvidenceMissing; a
// state outside the enum or a backward move is rejected with
// ErrInvalidGoalState.
func (m *Machine) UpdateGoalProgress(ctx context.Context, sessionID uuid.UUID, goalID string, newState domain.GoalState, evidence string) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.UpdateGoalProgress: %w", err)
	}

	update := domain.GoalUpdate{GoalID: goalID, NewState: newState, Evidence: evidence}
	if err := m.applyGoalUpdates(ctx, s, []domain.GoalUpdate{update}); err != nil {
		return nil, fmt.Errorf("intake.Machine.UpdateGoalProgress: %w", err)
	}
	return s, nil
}

// RecordConflictStatus stores the latest conflict determination.
func (m *Machine) RecordConflictStatus(ctx context.Context, sessionID uuid.UUID, status domain.ConflictStatus, confidence float64) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.RecordConflictStatus: %w", err)
	}

	if err := m.recordConflict(ctx, s, status, confidence); err != nil {
		return nil, fmt.Errorf("intake.Machine.RecordConflictStatus: %w", err)
	}
	return s, nil
}

// OverrideConflict records a staff decision to proceed despite a detected
// conflict. The actor and timestamp go to the audit log.
func (m *Machine) OverrideConflict(ctx context.Context, sessionID, actorID uuid.UUID, reason string) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.OverrideConflict: %w", err)
	}

	if s.Conflict.Status != domain.ConflictStatusDetected {
		return nil, fmt.Errorf("intake.Machine.OverrideConflict: status %q: %w", s.Conflict.Status, domain.ErrNoConflictToOverride)
	}

	now := time.Now()
	s.ConflictOverride = &domain.ConflictOverride{ActorID: actorID, Reason: reason, CreatedAt: now}
	s.LastActivityAt = now

	if err := m.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("intake.Machine.OverrideConflict: %w", err)
	}

	m.recordAudit(ctx, s, "user", actorID.String(), "conflict.override", map[string]any{
		"reason":     reason,
		"confidence": s.Conflict.Confidence,
	})

	return s, nil
}

// Secure performs the one-way pre_login -> secured transition. It fires
// exactly once per session: a second call fails with ErrAlreadySecured and
// leaves the session untouched. A subject that conflicts with an already
// bound identity is rejected with ErrIdentityMismatch and audited, since
// that rejection is security-relevant.
func (m *Machine) Secure(ctx context.Context, sessionID uuid.UUID, verified VerifiedIdentity) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.Secure: %w", err)
	}

	if s.Phase == domain.PhaseSecured {
		return nil, fmt.Errorf("intake.Machine.Secure: %w", domain.ErrAlreadySecured)
	}
	if !s.Phase.ValidTransition(domain.PhaseSecured) {
		return nil, fmt.Errorf("intake.Machine.Secure: phase %q: %w", s.Phase, domain.ErrAlreadySecured)
	}
	if verified.Subject == "" {
		return nil, fmt.Errorf("intake.Machine.Secure: empty subject: %w", domain.ErrIdentityMismatch)
	}
	if s.BoundSubject != "" && s.BoundSubject != verified.Subject {
		m.recordAudit(ctx, s, "client", verified.Subject, "session.identity_mismatch", map[string]any{
			"bound_subject": s.BoundSubject,
		})
		return nil, fmt.Errorf("intake.Machine.Secure: %w", domain.ErrIdentityMismatch)
	}

	now := time.Now()
	s.Phase = domain.PhaseSecured
	s.BoundSubject = verified.Subject
	s.ResumeTokenHash = "" // resume tokens are rejected unconditionally once secured
	s.LastActivityAt = now
	s.Identity.Merge(domain.ClientIdentity{Name: verified.Name, Emails: nonEmpty(verified.Email)})

	if err := m.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("intake.Machine.Secure: %w", err)
	}

	m.recordAudit(ctx, s, "client", verified.Subject, "session.secured", nil)
	publishEvent(ctx, m.pubsub, redisstore.FirmChannel(s.FirmID), IntakeEvent{
		Type:      EventSecured,
		SessionID: s.ID,
	})

	return s, nil
}

// ResumeByToken resolves a resume token to its pre-login session. Secured,
// closed, expired, and unknown tokens all fail with ErrInvalidResumeToken;
// the caller cannot distinguish which, by design of an unguessable secret.
func (m *Machine) ResumeByToken(ctx context.Context, token string) (*domain.IntakeSession, error) {
	if token == "" {
		return nil, fmt.Errorf("intake.Machine.ResumeByToken: %w", domain.ErrInvalidResumeToken)
	}

	hash := hashResumeToken(token)
	s, err := m.sessions.GetByResumeTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("intake.Machine.ResumeByToken: %w", domain.ErrInvalidResumeToken)
		}
		return nil, fmt.Errorf("intake.Machine.ResumeByToken: %w", err)
	}

	if s.Phase != domain.PhasePreLogin || s.Closed() {
		return nil, fmt.Errorf("intake.Machine.ResumeByToken: %w", domain.ErrInvalidResumeToken)
	}
	if time.Since(s.LastActivityAt) > m.tokenTTL {
		return nil, fmt.Errorf("intake.Machine.ResumeByToken: %w", domain.ErrInvalidResumeToken)
	}

	return s, nil
}

// AllGoalsComplete reports whether every gating goal is completed.
func (m *Machine) AllGoalsComplete(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	s, err := m.load(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("intake.Machine.AllGoalsComplete: %w", err)
	}
	return s.AllGoalsComplete(), nil
}

// GetSession loads a session scoped to a firm, for staff review surfaces.
func (m *Machine) GetSession(ctx context.Context, firmID, sessionID uuid.UUID) (*domain.IntakeSession, error) {
	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.GetSession: %w", err)
	}
	if s.FirmID != firmID {
		return nil, fmt.Errorf("intake.Machine.GetSession: %w", domain.ErrSessionNotFound)
	}
	return s, nil
}

// CloseSession finalizes a session. Further appends fail with
// ErrSessionClosed; the record persists for audit.
func (m *Machine) CloseSession(ctx context.Context, firmID, sessionID, actorID uuid.UUID) (*domain.IntakeSession, error) {
	release := m.acquire(sessionID)
	defer release()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake.Machine.CloseSession: %w", err)
	}
	if s.FirmID != firmID {
		return nil, fmt.Errorf("intake.Machine.CloseSession: %w", domain.ErrSessionNotFound)
	}
	if s.Closed() {
		return nil, fmt.Errorf("intake.Machine.CloseSession: %w", domain.ErrSessionClosed)
	}

	now := time.Now()
	s.ClosedAt = &now
	s.LastActivityAt = now

	if err := m.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("intake.Machine.CloseSession: %w", err)
	}

	m.recordAudit(ctx, s, "user", actorID.String(), "session.closed", nil)

	return s, nil
}

// ---------------------------------------------------------------------------
// Unlocked internals. The orchestrator holds the session lock for a whole
// turn and drives these directly so later steps observe earlier effects
// and two turns for one session never interleave.
// ---------------------------------------------------------------------------

func (m *Machine) load(ctx context.Context, sessionID uuid.UUID) (*domain.IntakeSession, error) {
	s, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (m *Machine) appendMessage(ctx context.Context, s *domain.IntakeSession, role domain.MessageRole, content string) error {
	if s.Closed() {
		return domain.ErrSessionClosed
	}

	now := time.Now()
	msg := domain.Message{
		ID:        uuid.New(),
		SessionID: s.ID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	if err := m.sessions.AppendMessage(ctx, &msg); err != nil {
		return err
	}

	s.Messages = append(s.Messages, msg)
	s.LastActivityAt = now

	return m.sessions.Update(ctx, s)
}

func (m *Machine) mergeIdentity(ctx context.Context, s *domain.IntakeSession, partial domain.ClientIdentity) (bool, error) {
	if !s.Identity.Merge(partial) {
		return false, nil
	}
	s.LastActivityAt = time.Now()
	return true, m.sessions.Update(ctx, s)
}

// applyGoalUpdates applies updates atomically: every update is validated
// before any is applied, so a rejected update never leaves the list half
// changed.
func (m *Machine) applyGoalUpdates(ctx context.Context, s *domain.IntakeSession, updates []domain.GoalUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		g := s.GoalByID(u.GoalID)
		if g == nil {
			return fmt.Errorf("goal %q: %w", u.GoalID, domain.ErrNotFound)
		}
		if !g.State.ValidTransition(u.NewState) {
			return fmt.Errorf("goal %q: %q -> %q: %w", u.GoalID, g.State, u.NewState, domain.ErrInvalidGoalState)
		}
		if u.NewState == domain.GoalStateCompleted && u.Evidence == "" {
			return fmt.Errorf("goal %q: %w", u.GoalID, domain.ErrGoalEvidenceMissing)
		}
		if u.NewState == domain.GoalStateCompleted && s.OnConflictHold() {
			return fmt.Errorf("goal %q: %w", u.GoalID, domain.ErrConflictHold)
		}
	}

	now := time.Now()
	for _, u := range updates {
		g := s.GoalByID(u.GoalID)
		g.State = u.NewState
		if u.Evidence != "" {
			g.Evidence = u.Evidence
		}
		g.UpdatedAt = now
	}
	s.LastActivityAt = now

	return m.sessions.Update(ctx, s)
}

func (m *Machine) recordConflict(ctx context.Context, s *domain.IntakeSession, status domain.ConflictStatus, confidence float64) error {
	s.Conflict = domain.ConflictCheck{
		Status:     status,
		Confidence: confidence,
		CheckedAt:  time.Now(),
	}
	s.LastActivityAt = s.Conflict.CheckedAt
	return m.sessions.Update(ctx, s)
}

func (m *Machine) addGoals(ctx context.Context, s *domain.IntakeSession, defs []domain.GoalDefinition) error {
	now := time.Now()
	added := false
	for _, def := range defs {
		if s.GoalByID(def.ID) != nil {
			continue
		}
		s.Goals = append(s.Goals, domain.NewGoal(def, now))
		added = true
	}
	if !added {
		return nil
	}
	s.LastActivityAt = now
	return m.sessions.Update(ctx, s)
}

func (m *Machine) markReadyForHandoff(ctx context.Context, s *domain.IntakeSession) (bool, error) {
	if s.ReadyForHandoff {
		return false, nil
	}

	now := time.Now()
	s.ReadyForHandoff = true
	s.HandoffAt = &now
	s.LastActivityAt = now

	if err := m.sessions.Update(ctx, s); err != nil {
		return false, err
	}

	m.recordAudit(ctx, s, "system", "orchestrator", "session.handoff", nil)

	return true, nil
}

// recordAudit is fire-and-forget: a failed audit write is logged, not
// propagated, so it never blocks the state transition it describes.
func (m *Machine) recordAudit(ctx context.Context, s *domain.IntakeSession, actorType, actorID, action string, details map[string]any) {
	if m.audit == nil {
		return
	}

	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		FirmID:     s.FirmID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		Resource:   "session",
		ResourceID: s.ID,
		Details:    details,
		CreatedAt:  time.Now(),
	}

	if err := m.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID.String()).Str("action", action).Msg("intake.Machine: audit write failed")
	}
}

func newResumeToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("resume token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, hashResumeToken(token), nil
}

func hashResumeToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
