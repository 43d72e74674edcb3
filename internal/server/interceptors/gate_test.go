package interceptors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"adinsights/backend/internal/account/domain"
	"adinsights/backend/internal/security"
)

type memAccounts struct {
	m   map[string]*domain.Account
	err error
}

func (r *memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.m[id], nil
}

func newGateFixture(t *testing.T) (*Gate, *memAccounts, *security.TokenProvider) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	accounts := &memAccounts{m: map[string]*domain.Account{
		"acct-1": {ID: "acct-1", Email: "jane@example.com", Status: domain.StatusActive, Brands: []string{"acme", "globex"}},
	}}
	return NewGate(accounts, tokens), accounts, tokens
}

func issue(t *testing.T, tokens *security.TokenProvider, accountID, brandID string) string {
	t.Helper()
	tok, _, err := tokens.IssueAccess(security.AccessClaims{
		AccountID: accountID, BrandID: brandID, Email: "jane@example.com", Scopes: []string{"READ"},
	})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return tok
}

func TestGate_Admit(t *testing.T) {
	gate, _, tokens := newGateFixture(t)
	tok := issue(t, tokens, "acct-1", "acme")

	claims, err := gate.Admit(context.Background(), "Bearer "+tok)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if claims.AccountID != "acct-1" || claims.BrandID != "acme" || !claims.HasScope("READ") {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := gate.Admit(context.Background(), "  bearer "+tok+" "); err != nil {
		t.Errorf("lower-case scheme: %v", err)
	}
}

func TestGate_Rejections(t *testing.T) {
	gate, _, tokens := newGateFixture(t)
	valid := issue(t, tokens, "acct-1", "acme")
	parts := strings.Split(valid, ".")
	other, err := security.NewTestRSATokenProvider()
	if err != nil {
		t.Fatalf("NewTestRSATokenProvider: %v", err)
	}
	foreign := issue(t, other, "acct-1", "acme")

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrMissingBearer},
		{"basic scheme", "Basic " + valid, ErrMissingBearer},
		{"scheme only", "Bearer ", ErrMissingBearer},
		{"no dots", "Bearer abc", ErrMalformedToken},
		{"missing signature", "Bearer " + parts[0] + "." + parts[1] + ".", ErrMalformedToken},
		{"too many parts", "Bearer " + valid + ".x", ErrMalformedToken},
		{"undecodable payload", "Bearer " + parts[0] + ".!!!." + parts[2], ErrMalformedToken},
		{"unknown account", "Bearer " + issue(t, tokens, "ghost", "acme"), ErrAccessDenied},
		{"brand not a membership", "Bearer " + issue(t, tokens, "acct-1", "initech"), ErrAccessDenied},
		{"tampered signature", "Bearer " + parts[0] + "." + parts[1] + ".AAAA", ErrSessionExpired},
		{"signed by another key", "Bearer " + foreign, ErrSessionExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gate.Admit(context.Background(), tc.header)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGate_BrandRemovedAfterIssue(t *testing.T) {
	gate, accounts, tokens := newGateFixture(t)
	tok := issue(t, tokens, "acct-1", "globex")
	if _, err := gate.Admit(context.Background(), "Bearer "+tok); err != nil {
		t.Fatalf("Admit before removal: %v", err)
	}

	accounts.m["acct-1"].Brands = []string{"acme"}

	if _, err := gate.Admit(context.Background(), "Bearer "+tok); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("err = %v, want ErrAccessDenied", err)
	}
}

func TestGate_DisabledAccount(t *testing.T) {
	gate, accounts, tokens := newGateFixture(t)
	tok := issue(t, tokens, "acct-1", "acme")
	accounts.m["acct-1"].Status = domain.StatusDisabled
	if _, err := gate.Admit(context.Background(), "Bearer "+tok); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("err = %v, want ErrAccessDenied", err)
	}
}

func TestGate_StoreError(t *testing.T) {
	gate, accounts, tokens := newGateFixture(t)
	tok := issue(t, tokens, "acct-1", "acme")
	accounts.err = errors.New("connection refused")
	_, err := gate.Admit(context.Background(), "Bearer "+tok)
	if err == nil || errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want a store error", err)
	}
}

func TestParseBearer(t *testing.T) {
	if tok, ok := ParseBearer("BEARER abc"); !ok || tok != "abc" {
		t.Errorf("ParseBearer = %q, %v", tok, ok)
	}
	if _, ok := ParseBearer("Token abc"); ok {
		t.Error("non-bearer scheme accepted")
	}
}
