package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/secrets"
)

// SessionRepo persists intake session aggregates. The conversation lives
// in intake_messages as append-only rows; identity, goals, and conflict
// state are jsonb columns on the session row.
//
// When a vault is configured the identity column holds an encrypted
// envelope instead of plaintext PII. Rows written before the vault was
// enabled stay readable; new writes are always encrypted.
type SessionRepo struct {
	pool  *pgxpool.Pool
	vault *secrets.Vault
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// UseVault enables identity encryption at rest for all subsequent writes.
func (r *SessionRepo) UseVault(v *secrets.Vault) {
	r.vault = v
}

// identityEnvelope is the encrypted form of the identity column.
type identityEnvelope struct {
	Enc string `json:"enc"`
}

func (r *SessionRepo) encodeIdentity(ci domain.ClientIdentity) (any, error) {
	if r.vault == nil {
		return ci, nil
	}

	plain, err := json.Marshal(ci)
	if err != nil {
		return nil, fmt.Errorf("identity: marshal: %w", err)
	}
	ct, err := r.vault.Encrypt(string(plain))
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	return identityEnvelope{Enc: ct}, nil
}

func (r *SessionRepo) decodeIdentity(raw []byte, into *domain.ClientIdentity) error {
	var env identityEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Enc != "" {
		if r.vault == nil {
			return errors.New("identity: encrypted row but no vault configured")
		}
		plain, err := r.vault.Decrypt(env.Enc)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		return json.Unmarshal([]byte(plain), into)
	}

	return json.Unmarshal(raw, into)
}

const sessionColumns = `id, firm_id, phase, category, identity, goals, conflict, conflict_override,
       bound_subject, resume_token_hash, ready_for_handoff, handoff_at, closed_at, created_at, last_activity_at`

func (r *SessionRepo) Create(ctx context.Context, s *domain.IntakeSession) error {
	identity, err := r.encodeIdentity(s.Identity)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO intake_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.FirmID, s.Phase, s.Category, identity, s.Goals, s.Conflict, s.ConflictOverride,
		s.BoundSubject, s.ResumeTokenHash, s.ReadyForHandoff, s.HandoffAt, s.ClosedAt,
		s.CreatedAt, s.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}

	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error) {
	s, err := r.getOne(ctx, `SELECT `+sessionColumns+` FROM intake_sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}

	if err := r.loadMessages(ctx, s); err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}

	return s, nil
}

func (r *SessionRepo) GetByResumeTokenHash(ctx context.Context, hash string) (*domain.IntakeSession, error) {
	s, err := r.getOne(ctx,
		`SELECT `+sessionColumns+` FROM intake_sessions WHERE resume_token_hash = $1 AND resume_token_hash <> ''`,
		hash,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByResumeTokenHash: %w", err)
	}

	if err := r.loadMessages(ctx, s); err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByResumeTokenHash: %w", err)
	}

	return s, nil
}

// Update writes the mutable aggregate state. Message rows are never
// touched here; they only grow through AppendMessage.
func (r *SessionRepo) Update(ctx context.Context, s *domain.IntakeSession) error {
	identity, err := r.encodeIdentity(s.Identity)
	if err != nil {
		return fmt.Errorf("sessionRepo.Update: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE intake_sessions
		 SET phase = $1, category = $2, identity = $3, goals = $4, conflict = $5, conflict_override = $6,
		     bound_subject = $7, resume_token_hash = $8, ready_for_handoff = $9,
		     handoff_at = $10, closed_at = $11, last_activity_at = $12
		 WHERE id = $13`,
		s.Phase, s.Category, identity, s.Goals, s.Conflict, s.ConflictOverride,
		s.BoundSubject, s.ResumeTokenHash, s.ReadyForHandoff,
		s.HandoffAt, s.ClosedAt, s.LastActivityAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sessionRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *SessionRepo) AppendMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO intake_messages (id, session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.AppendMessage: %w", err)
	}

	return nil
}

func (r *SessionRepo) ListByFirm(ctx context.Context, firmID uuid.UUID, readyOnly bool, limit, offset int) ([]*domain.IntakeSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + sessionColumns + ` FROM intake_sessions WHERE firm_id = $1`
	if readyOnly {
		query += ` AND ready_for_handoff`
	}
	query += ` ORDER BY last_activity_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, firmID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByFirm: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.IntakeSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListByFirm: scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByFirm: rows: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepo) getOne(ctx context.Context, query string, arg any) (*domain.IntakeSession, error) {
	row := r.pool.QueryRow(ctx, query, arg)

	s, err := r.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *SessionRepo) loadMessages(ctx context.Context, s *domain.IntakeSession) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM intake_messages WHERE session_id = $1
		 ORDER BY created_at, id`,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return fmt.Errorf("messages: scan: %w", err)
		}
		s.Messages = append(s.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("messages: rows: %w", err)
	}

	return nil
}

func (r *SessionRepo) scanSession(row pgx.Row) (*domain.IntakeSession, error) {
	var (
		s           domain.IntakeSession
		identityRaw []byte
	)

	err := row.Scan(
		&s.ID, &s.FirmID, &s.Phase, &s.Category, &identityRaw, &s.Goals, &s.Conflict, &s.ConflictOverride,
		&s.BoundSubject, &s.ResumeTokenHash, &s.ReadyForHandoff, &s.HandoffAt, &s.ClosedAt,
		&s.CreatedAt, &s.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}

	if len(identityRaw) > 0 {
		if err := r.decodeIdentity(identityRaw, &s.Identity); err != nil {
			return nil, err
		}
	}

	return &s, nil
}
