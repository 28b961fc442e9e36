package middleware

import (
	"context"
	"net/http"

	"notably/internal/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireUser gates a subtree on an authenticated session. The resolved user
// id is stored on the request context; unauthenticated callers are
// redirected by the authenticator and never reach the wrapped handler.
func RequireUser(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := a.RequireUserID(w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the resolved user id on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the user id placed on the context by RequireUser.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
