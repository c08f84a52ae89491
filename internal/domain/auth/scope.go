package auth

import "strings"

const (
	ScopeUser     = "user"
	ScopeApprover = "approver"
	ScopeAdmin    = "admin"

	decisionScopePrefix = "decision:"
)

// DecisionScope binds a token to the decision on a single leave request.
func DecisionScope(requestID string) string {
	return decisionScopePrefix + requestID
}

// IsDecisionScope reports whether scope was produced by DecisionScope.
func IsDecisionScope(scope string) bool {
	return strings.HasPrefix(scope, decisionScopePrefix)
}

// HasScope reports whether the space-separated scope list grants want.
// ScopeAdmin grants everything.
func (p Principal) HasScope(want string) bool {
	for _, s := range strings.Fields(p.Scope) {
		if s == want || s == ScopeAdmin {
			return true
		}
	}
	return false
}
