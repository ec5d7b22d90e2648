package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// LoginHandler exchanges a username and password for a bearer access token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		token, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrMissingCredentials):
			writeValidationError(w, err.Error())
			return
		case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrUserInactive):
			writeUnauthorized(w, "Incorrect username or password")
			return
		default:
			log.Err(err).Str("username", req.Username).Msg("login failed")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, token)
	}
}

// RegisterHandler creates a user account and returns its profile.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeBody(w, r, &req) {
			return
		}

		user, err := s.auth.Register(r.Context(), UserFromContext(r.Context()), req.Username, req.Password, req.Email)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrForbidden):
			writeDetail(w, http.StatusForbidden, "Only admin can create new users")
			return
		case errors.Is(err, apperrors.ErrUserExists):
			writeDetail(w, http.StatusBadRequest, "Username already registered")
			return
		case errors.Is(err, auth.WeakPasswordErr):
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, apperrors.ErrMissingCredentials), errors.Is(err, auth.InvalidEmailErr):
			writeValidationError(w, err.Error())
			return
		default:
			log.Err(err).Str("username", req.Username).Msg("registration failed")
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		log.Info().Str("username", user.Username).Int64("id", user.ID).Msg("user registered")
		writeJSON(w, http.StatusOK, user.Profile())
	}
}

// MeHandler returns the profile of the bearer token's user.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, UserFromContext(r.Context()).Profile())
	}
}

// VerifyHandler confirms that the bearer token is valid.
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Token is valid",
			"user":    UserFromContext(r.Context()).Username,
		})
	}
}

// HealthHandler runs the registered health checks.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range s.health {
			if err := check(r.Context()); err != nil {
				log.Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidationError(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body of the form {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeValidationError writes a 422 whose detail is a list of issues.
func writeValidationError(w http.ResponseWriter, msgs ...string) {
	issues := make([]validationIssue, 0, len(msgs))
	for _, m := range msgs {
		issues = append(issues, validationIssue{Loc: []string{"body"}, Msg: m, Type: "value_error"})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}
