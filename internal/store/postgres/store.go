package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/secrets"
)

type Store struct {
	pool      *pgxpool.Pool
	firms     *FirmRepo
	users     *UserRepo
	sessions  *SessionRepo
	conflicts *ConflictEntryRepo
	audit     *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:      pool,
		firms:     NewFirmRepo(pool),
		users:     NewUserRepo(pool),
		sessions:  NewSessionRepo(pool),
		conflicts: NewConflictEntryRepo(pool),
		audit:     NewAuditRepo(pool),
	}, nil
}

// UseIdentityVault enables encryption at rest for session identity data.
func (s *Store) UseIdentityVault(v *secrets.Vault) {
	s.sessions.UseVault(v)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Firms() domain.FirmRepository       { return s.firms }
func (s *Store) Users() domain.UserRepository       { return s.users }
func (s *Store) Sessions() domain.SessionRepository { return s.sessions }
func (s *Store) ConflictEntries() *ConflictEntryRepo {
	return s.conflicts
}
func (s *Store) Audit() domain.AuditRepository { return s.audit }
