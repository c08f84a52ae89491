package middleware

import (
	"net/http"

	"leaveflow/internal/transport/http/api"
)

// RequireScope lets through principals whose token grants scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}
			if !principal.HasScope(scope) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
