package repository

import (
	"context"
	"fmt"

	"adinsights/backend/internal/db"

	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a membership repository backed by the given pool.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// AddMember appends each id to the other row's array when absent, in one transaction.
func (r *PostgresRepository) AddMember(ctx context.Context, brandID, accountID string) (bool, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		brandTag, err := tx.Exec(ctx,
			`UPDATE brands SET members = array_append(members, $2) WHERE id = $1 AND NOT ($2 = ANY(members))`,
			brandID, accountID)
		if err != nil {
			return false, fmt.Errorf("add brand member: %w", err)
		}
		accountTag, err := tx.Exec(ctx,
			`UPDATE accounts SET brands = array_append(brands, $2), updated_at = now() WHERE id = $1 AND NOT ($2 = ANY(brands))`,
			accountID, brandID)
		if err != nil {
			return false, fmt.Errorf("add account brand: %w", err)
		}
		return brandTag.RowsAffected() > 0 || accountTag.RowsAffected() > 0, nil
	})
}

// RemoveMember removes each id from the other row's array, in one transaction.
func (r *PostgresRepository) RemoveMember(ctx context.Context, brandID, accountID string) (bool, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (bool, error) {
		brandTag, err := tx.Exec(ctx,
			`UPDATE brands SET members = array_remove(members, $2) WHERE id = $1 AND $2 = ANY(members)`,
			brandID, accountID)
		if err != nil {
			return false, fmt.Errorf("remove brand member: %w", err)
		}
		accountTag, err := tx.Exec(ctx,
			`UPDATE accounts SET brands = array_remove(brands, $2), updated_at = now() WHERE id = $1 AND $2 = ANY(brands)`,
			accountID, brandID)
		if err != nil {
			return false, fmt.Errorf("remove account brand: %w", err)
		}
		return brandTag.RowsAffected() > 0 || accountTag.RowsAffected() > 0, nil
	})
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(pgx.Tx) (bool, error)) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	changed, err := fn(tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return changed, nil
}
