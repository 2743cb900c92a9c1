package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/PaulBabatuyi/supportchat/internal/auth"
	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/gateway"
)

// context key type for storing the verified identity
type authContextKey struct{}

// getIdentityFromContext extracts the verified identity, if present.
func getIdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(authContextKey{}).(auth.Identity)
	return id, ok
}

// requireAuth rejects requests without a valid bearer token and attaches the
// identity to the request context for handlers.
func requireAuth(v gateway.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeMessage(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}

			id, err := v.Verify(token)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin must run after requireAuth.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := getIdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, chat.ErrAuth)
			return
		}
		if !id.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
