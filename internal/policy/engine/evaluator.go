package engine

import "context"

// Actions checked against an account's scopes.
const (
	ActionBrandInvite       = "brand.invite"
	ActionBrandRemoveMember = "brand.remove_member"
	ActionInsightsRead      = "insights.read"
	ActionInsightsWrite     = "insights.write"
)

// ScopeEvaluator decides whether the scopes carried by an access token permit an action.
type ScopeEvaluator interface {
	Allow(ctx context.Context, action string, scopes []string) (bool, error)
}
