package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casefront/engage/internal/domain"
)

// ConflictEntryRepo is the durable record of each firm's conflict list.
// The vector index is rebuilt from these rows on startup when it is not
// persisted.
type ConflictEntryRepo struct {
	pool *pgxpool.Pool
}

func NewConflictEntryRepo(pool *pgxpool.Pool) *ConflictEntryRepo {
	return &ConflictEntryRepo{pool: pool}
}

func (r *ConflictEntryRepo) Create(ctx context.Context, e *domain.ConflictEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conflict_entries (id, firm_id, name, kind, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.FirmID, e.Name, e.Kind, e.Notes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("conflictEntryRepo.Create: %w", err)
	}

	return nil
}

func (r *ConflictEntryRepo) GetByID(ctx context.Context, firmID, id uuid.UUID) (*domain.ConflictEntry, error) {
	var e domain.ConflictEntry

	err := r.pool.QueryRow(ctx,
		`SELECT id, firm_id, name, kind, notes, created_at
		 FROM conflict_entries WHERE firm_id = $1 AND id = $2`,
		firmID, id,
	).Scan(&e.ID, &e.FirmID, &e.Name, &e.Kind, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conflictEntryRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conflictEntryRepo.GetByID: %w", err)
	}

	return &e, nil
}

func (r *ConflictEntryRepo) ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.ConflictEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, firm_id, name, kind, notes, created_at
		 FROM conflict_entries WHERE firm_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		firmID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("conflictEntryRepo.ListByFirm: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ConflictEntry
	for rows.Next() {
		var e domain.ConflictEntry
		if err := rows.Scan(&e.ID, &e.FirmID, &e.Name, &e.Kind, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("conflictEntryRepo.ListByFirm: scan: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflictEntryRepo.ListByFirm: rows: %w", err)
	}

	return entries, nil
}

// ForEach streams every entry for a firm, used to rebuild the vector
// index at startup.
func (r *ConflictEntryRepo) ForEach(ctx context.Context, firmID uuid.UUID, fn func(*domain.ConflictEntry) error) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, firm_id, name, kind, notes, created_at
		 FROM conflict_entries WHERE firm_id = $1 ORDER BY created_at`,
		firmID,
	)
	if err != nil {
		return fmt.Errorf("conflictEntryRepo.ForEach: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.ConflictEntry
		if err := rows.Scan(&e.ID, &e.FirmID, &e.Name, &e.Kind, &e.Notes, &e.CreatedAt); err != nil {
			return fmt.Errorf("conflictEntryRepo.ForEach: scan: %w", err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("conflictEntryRepo.ForEach: rows: %w", err)
	}

	return nil
}
