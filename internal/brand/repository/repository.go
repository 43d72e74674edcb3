package repository

import (
	"context"
	"errors"

	"adinsights/backend/internal/brand/domain"
)

// ErrDuplicateName is returned by Create when a brand with the same name exists.
var ErrDuplicateName = errors.New("brand name already exists")

// Repository defines persistence for brands. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Brand, error)
	GetByName(ctx context.Context, name string) (*domain.Brand, error)
	Create(ctx context.Context, b *domain.Brand) error
}
