package interceptors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adinsights/backend/internal/account/domain"
	"adinsights/backend/internal/security"
)

// Admission failures, in the order the gate checks them.
var (
	ErrMissingBearer  = errors.New("missing or invalid authorization")
	ErrMalformedToken = errors.New("malformed token")
	ErrAccessDenied   = errors.New("access denied")
	ErrSessionExpired = errors.New("session expired")
)

const bearerPrefix = "bearer "

// AccountLookup is the account read the gate needs.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// Gate admits bearer access tokens. Brand membership is checked against the store before the
// signature, so a token for a brand the account has since left is refused while still unexpired.
type Gate struct {
	accounts AccountLookup
	tokens   *security.TokenProvider
}

// NewGate returns a Gate reading memberships from accounts.
func NewGate(accounts AccountLookup, tokens *security.TokenProvider) *Gate {
	return &Gate{accounts: accounts, tokens: tokens}
}

// Admit validates an Authorization header value and returns the verified claims.
func (g *Gate) Admit(ctx context.Context, authorization string) (*security.AccessClaims, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, ErrMissingBearer
	}
	if !splitsIntoMessageAndSignature(token) {
		return nil, ErrMalformedToken
	}
	hint, err := security.UnverifiedAccessClaims(token)
	if err != nil || hint.AccountID == "" {
		return nil, ErrMalformedToken
	}
	acct, err := g.accounts.GetByID(ctx, hint.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct == nil || acct.Status == domain.StatusDisabled || !acct.IsMember(hint.BrandID) {
		return nil, ErrAccessDenied
	}
	claims, err := g.tokens.ValidateAccess(token)
	if err != nil {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

// ParseBearer returns the token from a "Bearer <token>" value (scheme case-insensitive).
func ParseBearer(authorization string) (string, bool) {
	v := strings.TrimSpace(authorization)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(v[len(bearerPrefix):])
	return token, token != ""
}

// splitsIntoMessageAndSignature reports whether token is "<header>.<payload>.<signature>" with
// every part present.
func splitsIntoMessageAndSignature(token string) bool {
	i := strings.LastIndex(token, ".")
	if i <= 0 || i == len(token)-1 {
		return false
	}
	message := token[:i]
	dot := strings.Index(message, ".")
	return dot > 0 && dot < len(message)-1 && !strings.Contains(message[dot+1:], ".")
}
