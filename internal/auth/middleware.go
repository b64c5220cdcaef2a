package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeyActor is the context key for the authenticated caller
const ContextKeyActor contextKey = "actor"

// ActorAdmin is recorded for requests authenticated with the admin key.
const ActorAdmin = "admin"

// FailureFunc writes the response for a rejected request. status is
// 401 for a missing token and 403 for a wrong one.
type FailureFunc func(w http.ResponseWriter, r *http.Request, status int, msg string)

// RequireAdmin returns a middleware that admits requests bearing adminKey.
func RequireAdmin(adminKey string, fail FailureFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				fail(w, r, http.StatusUnauthorized, "Missing bearer token")
				return
			}
			if !VerifyAdminKey(token, adminKey) {
				fail(w, r, http.StatusForbidden, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyActor, ActorAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActorFromContext extracts the caller recorded by RequireAdmin
func GetActorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(string)
	return actor, ok
}

// GetIPAddress extracts the IP address from the request
func GetIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
