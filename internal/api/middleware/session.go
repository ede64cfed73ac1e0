package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pysugar/drivesweep/internal/auth/google"
	"github.com/pysugar/drivesweep/internal/db"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/logging"
)

type contextKey string

const userKey contextKey = "user"

// SessionStore resolves session tokens.
type SessionStore interface {
	FindUserBySession(ctx context.Context, sessionToken string) (*models.User, error)
}

// SessionAuth resolves the user_session cookie or a Bearer token to a user and stores it in the context.
func SessionAuth(store SessionStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				unauthorized(w, "Unauthenticated")
				return
			}

			user, err := store.FindUserBySession(r.Context(), token)
			if errors.Is(err, db.ErrNotFound) {
				unauthorized(w, "Invalid Session")
				return
			}
			if err != nil {
				logging.FromContext(r.Context()).Error().Err(err).Msg("❌ Session lookup failed")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": "Internal error"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// SessionToken reads the session from the cookie, falling back to the Authorization header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(google.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil outside SessionAuth.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + msg + `"}`))
}
