package rbac

import (
	"context"
	"errors"
	"testing"

	"adinsights/backend/internal/policy/engine"
	"adinsights/backend/internal/security"
	"adinsights/backend/internal/server/interceptors"
)

type stubEvaluator struct {
	allow bool
	err   error
	got   []string
}

func (s *stubEvaluator) Allow(ctx context.Context, action string, scopes []string) (bool, error) {
	s.got = scopes
	return s.allow, s.err
}

func adminCtx() context.Context {
	return interceptors.WithIdentity(context.Background(), &security.AccessClaims{
		AccountID: "acct-1", BrandID: "acme", Scopes: []string{"ADMIN"},
	})
}

func TestRequireScope_Allowed(t *testing.T) {
	ev := &stubEvaluator{allow: true}
	claims, err := RequireScope(adminCtx(), ev, engine.ActionBrandInvite)
	if err != nil {
		t.Fatalf("RequireScope: %v", err)
	}
	if claims.AccountID != "acct-1" || len(ev.got) != 1 || ev.got[0] != "ADMIN" {
		t.Errorf("claims = %+v, scopes passed = %v", claims, ev.got)
	}
}

func TestRequireScope_Unauthenticated(t *testing.T) {
	_, err := RequireScope(context.Background(), &stubEvaluator{allow: true}, engine.ActionBrandInvite)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireScope_Forbidden(t *testing.T) {
	_, err := RequireScope(adminCtx(), &stubEvaluator{allow: false}, engine.ActionBrandInvite)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestRequireScope_EvaluatorError(t *testing.T) {
	_, err := RequireScope(adminCtx(), &stubEvaluator{err: errors.New("boom")}, engine.ActionBrandInvite)
	if err == nil || errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v", err)
	}
}

func TestRequireScope_WithOPA(t *testing.T) {
	ev, err := engine.NewOPAEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if _, err := RequireScope(adminCtx(), ev, engine.ActionBrandRemoveMember); err != nil {
		t.Errorf("admin remove member: %v", err)
	}
	reader := interceptors.WithIdentity(context.Background(), &security.AccessClaims{
		AccountID: "acct-2", BrandID: "acme", Scopes: []string{"READ"},
	})
	if _, err := RequireScope(reader, ev, engine.ActionBrandInvite); !errors.Is(err, ErrForbidden) {
		t.Errorf("reader invite: err = %v, want ErrForbidden", err)
	}
}
