package rbac

import (
	"context"
	"errors"
	"fmt"

	"adinsights/backend/internal/policy/engine"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/server/interceptors"
)

var (
	// ErrUnauthenticated means no admitted identity is in the context.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the identity's scopes do not permit the action.
	ErrForbidden = errors.New("insufficient scope")
)

// RequireScope ensures the caller was admitted and that its scopes permit action under evaluator.
// Returns the admitted claims on success.
func RequireScope(ctx context.Context, evaluator engine.ScopeEvaluator, action string) (*security.AccessClaims, error) {
	claims, ok := interceptors.IdentityFrom(ctx)
	if !ok || claims.AccountID == "" || claims.BrandID == "" {
		return nil, ErrUnauthenticated
	}
	allowed, err := evaluator.Allow(ctx, action, claims.Scopes)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", action, err)
	}
	if !allowed {
		return nil, ErrForbidden
	}
	return claims, nil
}
