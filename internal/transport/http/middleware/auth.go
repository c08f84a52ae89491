package middleware

import (
	"context"
	"net/http"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/transport/http/api"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// TokenVerifier checks a bearer credential. *auth.Issuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Authorize admits only requests carrying a valid bearer token and attaches
// the decoded principal to the request context. Rejected requests get no
// context at all. Decision link tokens only authorise the link they were
// minted for and are refused here.
func Authorize(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}
			principal, err := verifier.Verify(token)
			if err != nil || auth.IsDecisionScope(principal.Scope) {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func WithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, principal)
}

func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	principal, ok := ctx.Value(ctxKeyPrincipal).(auth.Principal)
	return principal, ok
}
