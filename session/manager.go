// Package session owns the client-side authentication state: the token and
// user profile obtained from the identity service, and the mirror of the
// token in a persistent key-value store.
//
// A Manager is created once by the host application and injected into the
// views that need it. All remote failures are absorbed here; callers only see
// the boolean result of Login/Register and the Error field of State.
package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-session-auth/identity"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStoreKey = "token"

	LoginFailedMessage        = "Login failed"
	RegistrationFailedMessage = "Registration failed"
)

// IdentityService is the subset of the identity API the manager needs.
type IdentityService interface {
	Login(ctx context.Context, creds identity.Credentials) (*identity.TokenResponse, error)
	Register(ctx context.Context, creds identity.Credentials, bearer string) (*identity.User, error)
	CurrentUser(ctx context.Context, bearer string) (*identity.User, error)
}

var _ IdentityService = (*identity.Client)(nil)

type observer struct {
	id int
	fn func(State)
}

// Manager is the single writer of the session record.
//
// Operations are not serialised against each other: overlapping Login or
// Register calls interleave their writes and the last response wins. Hosts
// are expected to disable their submit controls while State().IsLoading.
type Manager struct {
	identity IdentityService
	store    tokenstore.Store
	storeKey string
	logger   zerolog.Logger

	// storeMu orders each token change in state with its store write so the
	// two agree once concurrent operations settle.
	storeMu sync.Mutex

	mu        sync.RWMutex
	state     State
	bearer    string // credential attached to outbound identity calls
	observers []observer
	nextObsID int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStoreKey overrides the key the token is persisted under.
func WithStoreKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.storeKey = key
		}
	}
}

// New creates a manager in the Anonymous state. store may be nil, in which
// case the session is never persisted.
func New(identitySvc IdentityService, store tokenstore.Store, options ...Option) *Manager {
	m := &Manager{
		identity: identitySvc,
		store:    store,
		storeKey: DefaultStoreKey,
		logger:   log.With().Str("component", "session").Logger(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// State returns a copy of the current session record.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Credential returns the bearer credential currently attached to outbound
// identity calls, or "" when none is.
func (m *Manager) Credential() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bearer
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextObsID++
	id := m.nextObsID
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Initialize restores a previous session from the store. When a token is
// found the manager becomes Authenticated and immediately fetches the
// current user, which purges the token if the service no longer accepts it.
// Without a stored token no network call is made.
func (m *Manager) Initialize(ctx context.Context) {
	token, ok := m.loadToken(ctx)
	if !ok {
		return
	}
	m.update(func(s *State) {
		s.Token = token
	})
	m.FetchCurrentUser(ctx)
}

// Login authenticates with the identity service. On success the token is
// kept, persisted and used as the bearer credential, and the user profile is
// fetched. On failure Error carries the service message or LoginFailedMessage
// and the token and user are left untouched.
func (m *Manager) Login(ctx context.Context, username, password string) bool {
	m.beginLoading()
	defer m.endLoading()
	return m.login(ctx, username, password)
}

// Register creates an account and then performs the full login flow with
// the same credentials. IsLoading stays set across both steps.
func (m *Manager) Register(ctx context.Context, username, password string) bool {
	m.beginLoading()
	defer m.endLoading()

	if username == "" || password == "" {
		m.fail(apperrors.ErrMissingCredentials.Error())
		return false
	}

	creds := identity.Credentials{Username: username, Password: password}
	if _, err := m.identity.Register(ctx, creds, m.Credential()); err != nil {
		m.logger.Warn().Err(err).Str("username", username).Msg("registration rejected")
		m.fail(failureMessage(err, RegistrationFailedMessage))
		return false
	}
	return m.login(ctx, username, password)
}

// FetchCurrentUser populates the user profile for the held token. It does
// nothing without a token. Any failure is treated as a stale credential and
// resolved by logging out.
func (m *Manager) FetchCurrentUser(ctx context.Context) {
	m.mu.Lock()
	token := m.state.Token
	if token != "" {
		m.bearer = token
	}
	m.mu.Unlock()

	if token == "" {
		return
	}

	user, err := m.identity.CurrentUser(ctx, token)
	if err != nil {
		// a newer login may have replaced the token while the request was in flight
		if m.clearSession(ctx, token) {
			m.logger.Warn().Err(err).Msg("failed to fetch current user, session cleared")
		}
		return
	}

	m.update(func(s *State) {
		if s.Token == token {
			s.User = cloneUser(user)
		}
	})
}

// Logout clears the token and user, removes the persisted token and drops
// the bearer credential. It is idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.clearSession(ctx, "")
}

func (m *Manager) login(ctx context.Context, username, password string) bool {
	if username == "" || password == "" {
		m.fail(apperrors.ErrMissingCredentials.Error())
		return false
	}

	tr, err := m.identity.Login(ctx, identity.Credentials{Username: username, Password: password})
	if err != nil {
		m.logger.Warn().Err(err).Str("username", username).Msg("login rejected")
		m.fail(failureMessage(err, LoginFailedMessage))
		return false
	}

	m.storeMu.Lock()
	m.mu.Lock()
	m.bearer = tr.AccessToken
	m.state.Token = tr.AccessToken
	snapshot, observers := m.pendingNotifyLocked()
	m.mu.Unlock()
	m.saveToken(ctx, tr.AccessToken)
	m.storeMu.Unlock()
	notify(snapshot, observers)

	m.FetchCurrentUser(ctx)
	return true
}

func (m *Manager) beginLoading() {
	m.update(func(s *State) {
		s.IsLoading = true
		s.Error = ""
	})
}

func (m *Manager) endLoading() {
	m.update(func(s *State) {
		s.IsLoading = false
	})
}

func (m *Manager) fail(msg string) {
	m.update(func(s *State) {
		s.Error = msg
	})
}

// clearSession drops the token, user and bearer and removes the stored
// token. A non-empty onlyToken limits this to when that token is still held.
// It reports whether the session was cleared.
func (m *Manager) clearSession(ctx context.Context, onlyToken string) bool {
	m.storeMu.Lock()
	m.mu.Lock()
	if onlyToken != "" && m.state.Token != onlyToken {
		m.mu.Unlock()
		m.storeMu.Unlock()
		return false
	}
	m.bearer = ""
	m.state.Token = ""
	m.state.User = nil
	snapshot, observers := m.pendingNotifyLocked()
	m.mu.Unlock()
	m.removeToken(ctx)
	m.storeMu.Unlock()

	notify(snapshot, observers)
	return true
}

// update applies fn under the lock and then notifies observers outside it.
func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot, observers := m.pendingNotifyLocked()
	m.mu.Unlock()

	notify(snapshot, observers)
}

func (m *Manager) pendingNotifyLocked() (State, []observer) {
	observers := make([]observer, len(m.observers))
	copy(observers, m.observers)
	return m.snapshotLocked(), observers
}

func notify(snapshot State, observers []observer) {
	for _, o := range observers {
		o.fn(snapshot)
	}
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	s.User = cloneUser(m.state.User)
	return s
}

// Store access is guarded: a missing store or a failing one never escapes.

func (m *Manager) loadToken(ctx context.Context) (string, bool) {
	if m.store == nil {
		return "", false
	}
	token, ok, err := m.store.Get(ctx, m.storeKey)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read persisted token")
		return "", false
	}
	return token, ok && token != ""
}

func (m *Manager) saveToken(ctx context.Context, token string) {
	if m.store == nil {
		return
	}
	if err := m.store.Set(ctx, m.storeKey, token); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist token")
	}
}

func (m *Manager) removeToken(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(ctx, m.storeKey); err != nil {
		m.logger.Error().Err(err).Msg("failed to remove persisted token")
	}
}

func failureMessage(err error, fallback string) string {
	if detail := identity.DetailOf(err); detail != "" {
		return detail
	}
	return fallback
}

func cloneUser(u *identity.User) *identity.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Email != nil {
		email := *u.Email
		c.Email = &email
	}
	return &c
}
