package domain

import (
	"errors"
	"strings"
	"time"
)

// Account is a person who can sign in and act on one or more brands.
type Account struct {
	ID             string
	Email          string
	FullName       string
	PasswordHash   string
	Status         Status
	RefreshVersion string
	Scopes         []Scope
	Brands         []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Status is the account lifecycle state. Accounts start PENDING and become ACTIVE through
// registration or a first completed two-factor sign-in.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
)

// Scope is a permission granted to an account on every brand it belongs to.
type Scope string

const (
	ScopeRead  Scope = "READ"
	ScopeWrite Scope = "WRITE"
	ScopeAdmin Scope = "ADMIN"
)

// ParseScope maps s (any case) to a known Scope.
func ParseScope(s string) (Scope, bool) {
	switch Scope(strings.ToUpper(strings.TrimSpace(s))) {
	case ScopeRead:
		return ScopeRead, true
	case ScopeWrite:
		return ScopeWrite, true
	case ScopeAdmin:
		return ScopeAdmin, true
	}
	return "", false
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	for _, s := range a.Scopes {
		if _, ok := ParseScope(string(s)); !ok {
			return errors.New("unknown scope " + string(s))
		}
	}
	return nil
}

// IsMember reports whether the account belongs to brandID.
func (a *Account) IsMember(brandID string) bool {
	for _, b := range a.Brands {
		if b == brandID {
			return true
		}
	}
	return false
}

// ScopeStrings returns the scopes as plain strings for token claims.
func (a *Account) ScopeStrings() []string {
	out := make([]string, len(a.Scopes))
	for i, s := range a.Scopes {
		out[i] = string(s)
	}
	return out
}
