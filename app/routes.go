package app

import (
	"errors"
	"fmt"
)

// Screens the host can display.
const (
	ScreenLogin     = "login"
	ScreenDashboard = "dashboard"
	ScreenGuide     = "guide"
)

const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
	PathGuide     = "/guide"

	maxRedirects = 8
)

var ErrRouteNotFound = errors.New("route not found")

// Route maps a path either to a screen or to another path.
type Route struct {
	Path     string
	Screen   string
	Redirect string
}

// Routes is a declarative route table. Lookup is by exact path.
type Routes []Route

func DefaultRoutes() Routes {
	return Routes{
		{Path: PathRoot, Redirect: PathLogin},
		{Path: PathLogin, Screen: ScreenLogin},
		{Path: PathDashboard, Screen: ScreenDashboard},
		{Path: PathGuide, Screen: ScreenGuide},
	}
}

// Resolve follows redirects from path and returns the route that names a screen.
func (rs Routes) Resolve(path string) (Route, error) {
	current := path
	for i := 0; i <= maxRedirects; i++ {
		route, ok := rs.lookup(current)
		if !ok {
			return Route{}, fmt.Errorf("%w: %s", ErrRouteNotFound, current)
		}
		if route.Redirect == "" {
			return route, nil
		}
		current = route.Redirect
	}
	return Route{}, fmt.Errorf("[Routes Resolve] too many redirects from %s", path)
}

func (rs Routes) lookup(path string) (Route, bool) {
	for _, r := range rs {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}
