package server

// Route path constants
const (
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthMe       = "/auth/me"
	RouteAuthVerify   = "/auth/verify"

	RouteAdminUsers      = "/admin/users"
	RouteAdminUserByID   = "/admin/users/{id}"
	RouteAdminUserByName = "/admin/users/{username}"

	RouteHealth = "/healthz"
)
