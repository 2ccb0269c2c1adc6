package middleware

import "net/http"

// RequireElevated must run after Auth. It rejects before the handler runs so
// that no side effect can happen for a non-elevated caller.
func RequireElevated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !identity.Elevated() {
				http.Error(w, "elevated privileges required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
