package repository

import (
	"context"
	"errors"

	"adinsights/backend/internal/account/domain"
)

// ErrDuplicateEmail is returned by Create when an account with the same email already exists.
var ErrDuplicateEmail = errors.New("account email already exists")

// Repository defines persistence for accounts. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetPendingByPasswordHash finds the PENDING account whose stored hash equals hash exactly.
	GetPendingByPasswordHash(ctx context.Context, hash string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	// CompleteRegistration swaps the password hash and activates the account only while it is still
	// PENDING with currentHash. Returns false when nothing matched.
	CompleteRegistration(ctx context.Context, id, currentHash, newHash string) (bool, error)
	// Activate moves a PENDING account to ACTIVE. Other statuses are left untouched.
	Activate(ctx context.Context, id string) error
	SetRefreshVersion(ctx context.Context, id, version string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}
