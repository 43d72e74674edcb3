package repository

import (
	"context"
	"errors"
	"time"

	"adinsights/backend/internal/brand/domain"
	"adinsights/backend/internal/db"

	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a brand repository backed by the given pool.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// GetByID returns the brand for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	return r.getOne(ctx, `SELECT id, name, members, created_at FROM brands WHERE id = $1`, id)
}

// GetByName returns the brand with the given unique name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Brand, error) {
	return r.getOne(ctx, `SELECT id, name, members, created_at FROM brands WHERE name = $1`, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Brand, error) {
	var b domain.Brand
	err := r.db.QueryRow(ctx, query, arg).Scan(&b.ID, &b.Name, &b.Members, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts b with no members. ID must be set by the caller.
func (r *PostgresRepository) Create(ctx context.Context, b *domain.Brand) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO brands (id, name, members, created_at) VALUES ($1, $2, '{}', $3)`,
		b.ID, b.Name, b.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}
