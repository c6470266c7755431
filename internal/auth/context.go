package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyAdmin marks a request that carried a valid admin token.
const ContextKeyAdmin ContextKey = "admin"

type Verifier interface {
	Verify(credential string) bool
}

func ContextWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyAdmin, true)
}

func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(ContextKeyAdmin).(bool)
	return admin
}

// WithAdminToken returns middleware that marks requests carrying a valid token as admin.
// Requests without one pass through unchanged.
func WithAdminToken(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token != "" && v != nil && v.Verify(token) {
				next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests that WithAdminToken did not mark as admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Unauthorized access attempt")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
