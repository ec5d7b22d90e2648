// Package app is the single bootstrap for a session client host: it wires
// the identity client, the token store and the session manager, and owns the
// host's route table.
package app

import (
	"context"
	"io"
	"net/http"

	"github.com/jrsteele09/go-session-auth/identity"
	"github.com/jrsteele09/go-session-auth/session"
	"github.com/jrsteele09/go-session-auth/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	BaseURL    string
	Store      tokenstore.Store // nil disables persistence
	Logger     *zerolog.Logger
	Routes     Routes
	HTTPClient *http.Client
}

type App struct {
	Identity *identity.Client
	Session  *session.Manager
	Routes   Routes

	store  tokenstore.Store
	logger zerolog.Logger
}

func New(opts Options) *App {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	routes := opts.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}

	client := identity.New(opts.BaseURL, identity.WithHTTPClient(opts.HTTPClient))
	return &App{
		Identity: client,
		Session:  session.New(client, opts.Store, session.WithLogger(logger.With().Str("component", "session").Logger())),
		Routes:   routes,
		store:    opts.Store,
		logger:   logger,
	}
}

// Start restores any persisted session.
func (a *App) Start(ctx context.Context) {
	a.logger.Debug().Str("identity", a.Identity.BaseURL()).Msg("starting session client")
	a.Session.Initialize(ctx)
}

// AfterLogin returns the path to navigate to once a login or registration attempt completes.
func (a *App) AfterLogin(ok bool) string {
	if ok {
		return PathDashboard
	}
	return PathLogin
}

// Close releases the store. The session itself is left intact.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
