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

type FirmRepo struct {
	pool *pgxpool.Pool
}

func NewFirmRepo(pool *pgxpool.Pool) *FirmRepo {
	return &FirmRepo{pool: pool}
}

func (r *FirmRepo) Create(ctx context.Context, f *domain.Firm) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO firms (id, name, slug, default_category, slack_channel, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.Name, f.Slug, f.DefaultCategory, f.SlackChannel, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("firmRepo.Create: %w", err)
	}

	return nil
}

func (r *FirmRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Firm, error) {
	var f domain.Firm

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, default_category, slack_channel, created_at, updated_at
		 FROM firms WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Name, &f.Slug, &f.DefaultCategory, &f.SlackChannel, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("firmRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("firmRepo.GetByID: %w", err)
	}

	return &f, nil
}

func (r *FirmRepo) GetBySlug(ctx context.Context, slug string) (*domain.Firm, error) {
	var f domain.Firm

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, default_category, slack_channel, created_at, updated_at
		 FROM firms WHERE slug = $1`,
		slug,
	).Scan(&f.ID, &f.Name, &f.Slug, &f.DefaultCategory, &f.SlackChannel, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("firmRepo.GetBySlug: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("firmRepo.GetBySlug: %w", err)
	}

	return &f, nil
}

func (r *FirmRepo) Update(ctx context.Context, f *domain.Firm) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE firms SET name = $1, slug = $2, default_category = $3, slack_channel = $4, updated_at = now()
		 WHERE id = $5`,
		f.Name, f.Slug, f.DefaultCategory, f.SlackChannel, f.ID,
	)
	if err != nil {
		return fmt.Errorf("firmRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("firmRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *FirmRepo) List(ctx context.Context) ([]*domain.Firm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, default_category, slack_channel, created_at, updated_at
		 FROM firms ORDER BY created_at LIMIT 1000`,
	)
	if err != nil {
		return nil, fmt.Errorf("firmRepo.List: %w", err)
	}
	defer rows.Close()

	var firms []*domain.Firm
	for rows.Next() {
		var f domain.Firm
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.DefaultCategory, &f.SlackChannel, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("firmRepo.List: scan: %w", err)
		}
		firms = append(firms, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("firmRepo.List: rows: %w", err)
	}

	return firms, nil
}
