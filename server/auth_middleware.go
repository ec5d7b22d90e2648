package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

const (
	detailNotAuthenticated = "Not authenticated"
	detailInvalidToken     = "Could not validate credentials"
)

// UserFromContext returns the user set by RequireAuth or OptionalAuth, or nil.
func UserFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(ContextKeyUser).(*users.User)
	return u
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireAuth validates the bearer access token and injects its user into
// the request context. Failures answer 401 with a Bearer challenge.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, detailNotAuthenticated)
				return
			}

			user, err := s.auth.UserFromToken(r.Context(), raw)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
				writeUnauthorized(w, detailInvalidToken)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user)))
		}
	}
}

// OptionalAuth injects the user when a valid bearer token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearerToken(r); ok {
				if user, err := s.auth.UserFromToken(r.Context(), raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user))
				}
			}
			next(w, r)
		}
	}
}

// RequireAdmin must follow RequireAuth.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || user.Username != s.auth.AdminUsername() {
				writeDetail(w, http.StatusForbidden, "Admin privileges required")
				return
			}
			next(w, r)
		}
	}
}
