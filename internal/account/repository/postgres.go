package repository

import (
	"context"
	"errors"
	"time"

	"adinsights/backend/internal/account/domain"
	"adinsights/backend/internal/db"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, full_name, password_hash, status, refresh_version, scopes, brands, created_at, updated_at`

type PostgresRepository struct {
	db  db.DBTX
	now func() time.Time
}

// NewPostgresRepository returns an account repository backed by the given pool.
func NewPostgresRepository(pool db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: pool, now: func() time.Time { return time.Now().UTC() }}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail returns the account with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, domain.NormalizeEmail(email))
}

// GetPendingByPasswordHash returns the PENDING account whose password hash equals hash, or nil.
func (r *PostgresRepository) GetPendingByPasswordHash(ctx context.Context, hash string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE password_hash = $1 AND status = 'PENDING'`, hash)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// Create inserts a. ID must be set by the caller. A unique violation on email yields ErrDuplicateEmail.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	now := r.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	brands := a.Brands
	if brands == nil {
		brands = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, domain.NormalizeEmail(a.Email), a.FullName, a.PasswordHash, string(a.Status), a.RefreshVersion,
		a.ScopeStrings(), brands, a.CreatedAt, a.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// CompleteRegistration activates a PENDING account whose hash is still currentHash.
func (r *PostgresRepository) CompleteRegistration(ctx context.Context, id, currentHash, newHash string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $3, status = 'ACTIVE', updated_at = $4
		 WHERE id = $1 AND password_hash = $2 AND status = 'PENDING'`,
		id, currentHash, newHash, r.now(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Activate sets status ACTIVE when the account is PENDING.
func (r *PostgresRepository) Activate(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = 'ACTIVE', updated_at = $2 WHERE id = $1 AND status = 'PENDING'`,
		id, r.now(),
	)
	return err
}

// SetRefreshVersion stores the account's current refresh-token version.
func (r *PostgresRepository) SetRefreshVersion(ctx context.Context, id, version string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET refresh_version = $2, updated_at = $3 WHERE id = $1`,
		id, version, r.now(),
	)
	return err
}

// SetPasswordHash replaces the stored password hash.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, r.now(),
	)
	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a      domain.Account
		status string
		scopes []string
	)
	if err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &status, &a.RefreshVersion,
		&scopes, &a.Brands, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = domain.Status(status)
	a.Scopes = make([]domain.Scope, 0, len(scopes))
	for _, s := range scopes {
		a.Scopes = append(a.Scopes, domain.Scope(s))
	}
	return &a, nil
}
