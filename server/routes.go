package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/internal/config"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))

	// Admin-only registration needs a verified caller, open registration only uses one when present.
	registerAuth := s.OptionalAuth()
	if s.auth.RegistrationMode() == config.RegistrationAdminOnly {
		registerAuth = s.RequireAuth()
	}
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(registerAuth)...))

	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAuthVerify, ChainMiddleware(s.VerifyHandler(), s.APIMiddleware(s.RequireAuth())...))

	adminOnly := s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersListHandler(), adminOnly...))
	s.RegisterRouteHandler("GET "+RouteAdminUserByID, ChainMiddleware(s.AdminUserHandler(), adminOnly...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUserByName, ChainMiddleware(s.AdminUserDeleteHandler(), adminOnly...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// CORS preflight for every API route
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
