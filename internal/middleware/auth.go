package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"market/internal/authority"
	"market/internal/common"
)

type contextKey string

const identityKey contextKey = "identity"

type Authenticator interface {
	RequireAuthenticated(ctx context.Context, token string) (authority.Identity, error)
}

func IdentityFromContext(ctx context.Context) (authority.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(authority.Identity)
	return identity, ok && identity.Authenticated()
}

func WithIdentity(ctx context.Context, identity authority.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// BearerToken extracts the session token from the Authorization header, or
// from the token query parameter for websocket upgrades where browsers
// cannot set headers.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func Auth(guard Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "missing or invalid authorization header", http.StatusUnauthorized)
				return
			}
			identity, err := guard.RequireAuthenticated(r.Context(), token)
			if errors.Is(err, common.ErrStorageUnavailable) {
				http.Error(w, "unable to verify session", http.StatusServiceUnavailable)
				return
			}
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
