package server

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 50

// AdminUsersListHandler lists user profiles, paged with ?offset= and ?limit=.
func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", defaultListLimit)

		list, err := s.repos.Users.List(r.Context(), offset, limit)
		if err != nil {
			log.Err(err).Msg("failed to list users")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		profiles := make([]users.Profile, 0, len(list))
		for _, u := range list {
			profiles = append(profiles, u.Profile())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"users":  profiles,
			"offset": offset,
			"limit":  limit,
		})
	}
}

// AdminUserHandler returns the profile of the user named by the {id} path segment.
func (s *Server) AdminUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeValidationError(w, "user id must be an integer")
			return
		}

		user, err := s.auth.UserByID(r.Context(), id)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "User not found")
		case err != nil:
			log.Err(err).Int64("id", id).Msg("failed to load user")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		default:
			writeJSON(w, http.StatusOK, user.Profile())
		}
	}
}

// AdminUserDeleteHandler removes the user named by the {username} path segment.
func (s *Server) AdminUserDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.PathValue("username")

		err := s.auth.DeleteUser(r.Context(), username)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "User not found")
		case errors.Is(err, apperrors.ErrForbidden):
			writeDetail(w, http.StatusForbidden, "The admin user cannot be deleted")
		case err != nil:
			log.Err(err).Str("username", username).Msg("failed to delete user")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		default:
			log.Info().Str("username", username).Msg("user deleted")
			writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
		}
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
