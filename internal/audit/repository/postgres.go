package repository

import (
	"context"

	"adinsights/backend/internal/audit/domain"
	"adinsights/backend/internal/db"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository backed by the given pool.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// Create persists the audit log. The audit log must have ID set. Replayed events with a known ID
// are ignored.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, brand_id, account_id, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
		a.ID, a.BrandID, a.AccountID, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt,
	)
	return err
}

// ListByBrand returns the brand's audit logs, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByBrand(ctx context.Context, brandID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, brand_id, account_id, action, resource, ip, metadata, created_at
		 FROM audit_logs WHERE brand_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		brandID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.BrandID, &a.AccountID, &a.Action, &a.Resource, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
