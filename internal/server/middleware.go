// internal/server/middleware.go
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/mfjones/chatter/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "no_authorization", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			s.writeError(w, http.StatusUnauthorized, "invalid_authorization", "Invalid authorization header format")
			return
		}

		userID, err := s.authService.UserIDFromToken(parts[1])
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		user, err := s.authService.GetUser(r.Context(), userID)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "user_not_found", "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext returns the authenticated user, or nil outside the
// auth middleware.
func GetUserFromContext(r *http.Request) *store.User {
	user, _ := r.Context().Value(UserContextKey).(*store.User)
	return user
}
