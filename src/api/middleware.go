package api

import (
	"context"
	"net/http"
	"strings"

	"sp2any/src/auth"
	"sp2any/src/users"
)

type contextKey int

const userIDContextKey contextKey = iota

// RequireAuth verifies the bearer session token and attaches the resolved
// user id to the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			userID, err := auth.VerifyToken(jwtSecret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFromContext(r *http.Request) (users.UserId, bool) {
	id, ok := r.Context().Value(userIDContextKey).(users.UserId)
	return id, ok
}
