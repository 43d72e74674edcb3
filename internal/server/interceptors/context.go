package interceptors

import (
	"context"

	"adinsights/backend/internal/security"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the admitted access-token claims.
// Handlers read them via IdentityFrom, GetAccountID and GetBrandID.
func WithIdentity(ctx context.Context, claims *security.AccessClaims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

// IdentityFrom returns the admitted claims and true if set; otherwise nil, false.
func IdentityFrom(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(identityKey).(*security.AccessClaims)
	return c, ok && c != nil
}

// GetAccountID returns the account id from context and true if set; otherwise "", false.
func GetAccountID(ctx context.Context) (string, bool) {
	c, ok := IdentityFrom(ctx)
	if !ok {
		return "", false
	}
	return c.AccountID, true
}

// GetBrandID returns the brand the request is scoped to and true if set; otherwise "", false.
func GetBrandID(ctx context.Context) (string, bool) {
	c, ok := IdentityFrom(ctx)
	if !ok {
		return "", false
	}
	return c.BrandID, true
}

// WithClientIP records the caller address resolved by the HTTP layer so ClientIP can return it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}
