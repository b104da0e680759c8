package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casefront/engage/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (id, firm_id, actor_type, actor_id, action, resource, resource_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.FirmID, entry.ActorType, entry.ActorID,
		entry.Action, entry.Resource, entry.ResourceID, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListByFirm(ctx context.Context, firmID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, firm_id, actor_type, actor_id, action, resource, resource_id, details, created_at
		 FROM audit_log WHERE firm_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		firmID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByFirm: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows, "auditRepo.ListByFirm")
}

func (r *AuditRepo) ListByResource(ctx context.Context, firmID uuid.UUID, resource string, resourceID uuid.UUID) ([]*domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, firm_id, actor_type, actor_id, action, resource, resource_id, details, created_at
		 FROM audit_log WHERE firm_id = $1 AND resource = $2 AND resource_id = $3
		 ORDER BY created_at DESC LIMIT 500`,
		firmID, resource, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByResource: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows, "auditRepo.ListByResource")
}

func scanAuditEntries(rows pgx.Rows, caller string) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.FirmID, &e.ActorType, &e.ActorID,
			&e.Action, &e.Resource, &e.ResourceID, &e.Details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
