package engine

import (
	"context"
	"testing"
)

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	cases := []struct {
		action string
		scopes []string
		want   bool
	}{
		{ActionBrandInvite, []string{"ADMIN"}, true},
		{ActionBrandInvite, []string{"READ", "WRITE"}, false},
		{ActionBrandRemoveMember, []string{"READ", "ADMIN"}, true},
		{ActionBrandRemoveMember, nil, false},
		{ActionInsightsWrite, []string{"WRITE"}, true},
		{ActionInsightsWrite, []string{"ADMIN"}, true},
		{ActionInsightsWrite, []string{"READ"}, false},
		{ActionInsightsRead, []string{"READ"}, true},
		{ActionInsightsRead, []string{}, false},
		{"reports.delete", []string{"ADMIN"}, false},
	}
	for _, tc := range cases {
		got, err := e.Allow(context.Background(), tc.action, tc.scopes)
		if err != nil {
			t.Fatalf("Allow(%s, %v): %v", tc.action, tc.scopes, err)
		}
		if got != tc.want {
			t.Errorf("Allow(%s, %v) = %v, want %v", tc.action, tc.scopes, got, tc.want)
		}
	}
}

func TestOPAEvaluator_Ping(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOPAEvaluator_CustomModules(t *testing.T) {
	e, err := NewOPAEvaluatorFromModules(context.Background(), map[string]string{
		"deny.rego": "package adinsights.authz\n\ndefault allow := false\n",
	})
	if err != nil {
		t.Fatalf("NewOPAEvaluatorFromModules: %v", err)
	}
	if ok, _ := e.Allow(context.Background(), ActionInsightsRead, []string{"READ"}); ok {
		t.Error("deny-all policy allowed")
	}
	if err := e.Ping(context.Background()); err == nil {
		t.Error("Ping should fail when the probe is denied")
	}
}

func TestOPAEvaluator_InvalidPolicy(t *testing.T) {
	_, err := NewOPAEvaluatorFromModules(context.Background(), map[string]string{"bad.rego": "package x\nallow if {"})
	if err == nil {
		t.Error("expected compile error")
	}
}
