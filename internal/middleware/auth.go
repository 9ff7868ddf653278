// Package middleware provides HTTP middleware for the local inbox API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/skportal/feedback-inbox/internal/operator"
)

// ContextKey is a type for context keys.
type ContextKey string

// IdentityKey is the context key for the authenticated operator identity.
const IdentityKey ContextKey = "identity"

// Auth validates the portal session token on incoming requests and stores
// the operator identity in the request context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			who, err := operator.FromToken(parts[1], jwtSecret)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity gets the operator identity from context.
func GetIdentity(ctx context.Context) operator.Identity {
	if v := ctx.Value(IdentityKey); v != nil {
		return v.(operator.Identity)
	}
	return operator.Identity{}
}
