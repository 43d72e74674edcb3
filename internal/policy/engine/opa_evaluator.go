package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.adinsights.authz.allow"

// DefaultPolicy maps actions to the scopes that may perform them.
const DefaultPolicy = `package adinsights.authz

default allow := false

admin_actions := {"brand.invite", "brand.remove_member"}

allow if {
	admin_actions[input.action]
	"ADMIN" in input.scopes
}

allow if {
	input.action == "insights.write"
	some s in input.scopes
	s in {"WRITE", "ADMIN"}
}

allow if {
	input.action == "insights.read"
	count(input.scopes) > 0
}
`

// OPAEvaluator evaluates scope policy with an OPA Rego query prepared once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles DefaultPolicy.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	return NewOPAEvaluatorFromModules(ctx, map[string]string{"authz.rego": DefaultPolicy})
}

// NewOPAEvaluatorFromModules compiles the given Rego modules. They must define
// data.adinsights.authz.allow.
func NewOPAEvaluatorFromModules(ctx context.Context, modules map[string]string) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// Allow reports whether scopes permit action. Anything but an explicit true denies.
func (e *OPAEvaluator) Allow(ctx context.Context, action string, scopes []string) (bool, error) {
	if scopes == nil {
		scopes = []string{}
	}
	input := map[string]interface{}{
		"action": action,
		"scopes": scopes,
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed, nil
}

// Ping evaluates a probe so readiness checks notice a broken policy.
func (e *OPAEvaluator) Ping(ctx context.Context) error {
	ok, err := e.Allow(ctx, ActionInsightsRead, []string{"READ"})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy probe denied %s", ActionInsightsRead)
	}
	return nil
}
