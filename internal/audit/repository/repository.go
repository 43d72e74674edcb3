package repository

import (
	"context"

	"adinsights/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByBrand(ctx context.Context, brandID string, limit, offset int32) ([]*domain.AuditLog, error)
}
