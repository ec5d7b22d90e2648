package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/go-session-auth/identity"
	"github.com/jrsteele09/go-session-auth/session"
	"github.com/jrsteele09/go-session-auth/tokenstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeIdentity is a scripted IdentityService that records its calls.
type fakeIdentity struct {
	mu sync.Mutex

	passwords map[string]string // username -> password
	tokens    map[string]string // token -> username
	loginErr  error
	regErr    error
	meErr     error

	loginCalls     int
	registerCalls  int
	meCalls        int
	lastBearer     string
	registerBearer string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		passwords: map[string]string{"alice": "correct"},
		tokens:    map[string]string{},
	}
}

func (f *fakeIdentity) Login(_ context.Context, creds identity.Credentials) (*identity.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if pw, ok := f.passwords[creds.Username]; !ok || pw != creds.Password {
		return nil, &identity.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid credentials"}
	}
	token := "tok-" + creds.Username
	f.tokens[token] = creds.Username
	return &identity.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (f *fakeIdentity) Register(_ context.Context, creds identity.Credentials, bearer string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	f.registerBearer = bearer
	if f.regErr != nil {
		return nil, f.regErr
	}
	if _, ok := f.passwords[creds.Username]; ok {
		return nil, &identity.APIError{StatusCode: http.StatusBadRequest, Detail: "Username already registered"}
	}
	f.passwords[creds.Username] = creds.Password
	return &identity.User{Username: creds.Username}, nil
}

func (f *fakeIdentity) CurrentUser(_ context.Context, bearer string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	f.lastBearer = bearer
	if f.meErr != nil {
		return nil, f.meErr
	}
	username, ok := f.tokens[bearer]
	if !ok {
		return nil, &identity.APIError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	return &identity.User{ID: 1, Username: username, IsActive: true}, nil
}

func (f *fakeIdentity) calls() (login, register, me int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.registerCalls, f.meCalls
}

func newManager(t *testing.T, svc session.IdentityService, store tokenstore.Store) *session.Manager {
	t.Helper()
	return session.New(svc, store, session.WithLogger(zerolog.Nop()))
}

func storedToken(t *testing.T, store tokenstore.Store) (string, bool) {
	t.Helper()
	v, ok, err := store.Get(context.Background(), session.DefaultStoreKey)
	require.NoError(t, err)
	return v, ok
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	svc := newFakeIdentity()
	store := tokenstore.NewMemory()
	m := newManager(t, svc, store)

	ok := m.Login(ctx, "alice", "correct")

	require.True(t, ok)
	st := m.State()
	require.Equal(t, "tok-alice", st.Token)
	require.NotNil(t, st.User)
	require.Equal(t, "alice", st.User.Username)
	require.False(t, st.IsLoading)
	require.Empty(t, st.Error)
	require.Equal(t, session.StatusAuthenticated, st.Status())

	v, found := storedToken(t, store)
	require.True(t, found)
	require.Equal(t, "tok-alice", v)
	require.Equal(t, "tok-alice", m.Credential())
	require.Equal(t, "tok-alice", svc.lastBearer)
}

func TestLogin_Rejected(t *testing.T) {
	ctx := context.Background()
	svc := newFakeIdentity()
	store := tokenstore.NewMemory()
	m := newManager(t, svc, store)

	ok := m.Login(ctx, "alice", "wrong")

	require.False(t, ok)
	st := m.State()
	require.Empty(t, st.Token)
	require.Nil(t, st.User)
	require.Equal(t, "Invalid credentials", st.Error)
	require.False(t, st.IsLoading)
	require.Equal(t, session.StatusFailed, st.Status())

	_, found := storedToken(t, store)
	require.False(t, found)

	_, _, me := svc.calls()
	require.Zero(t, me)
}

func TestLogin_FallbackMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("network failure", func(t *testing.T) {
		svc := newFakeIdentity()
		svc.loginErr = errors.New("dial tcp: connection refused")
		m := newManager(t, svc, tokenstore.NewMemory())

		require.False(t, m.Login(ctx, "alice", "correct"))
		require.Equal(t, session.LoginFailedMessage, m.State().Error)
	})

	t.Run("rejection without detail", func(t *testing.T) {
		svc := newFakeIdentity()
		svc.loginErr = &identity.APIError{StatusCode: http.StatusInternalServerError}
		m := newManager(t, svc, tokenstore.NewMemory())

		require.False(t, m.Login(ctx, "alice", "correct"))
		require.Equal(t, session.LoginFailedMessage, m.State().Error)
	})

	t.Run("empty credentials make no call", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, tokenstore.NewMemory())

		require.False(t, m.Login(ctx, "", "correct"))
		require.False(t, m.Login(ctx, "alice", ""))
		require.NotEmpty(t, m.State().Error)
		login, _, _ := svc.calls()
		require.Zero(t, login)
	})
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	svc := newFakeIdentity()
	m := newManager(t, svc, tokenstore.NewMemory())

	require.True(t, m.Login(ctx, "alice", "correct"))
	require.False(t, m.Login(ctx, "alice", "wrong"))

	st := m.State()
	require.Equal(t, "tok-alice", st.Token)
	require.NotNil(t, st.User)
	require.Equal(t, "Invalid credentials", st.Error)
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())

	require.False(t, m.Login(ctx, "alice", "wrong"))
	require.NotEmpty(t, m.State().Error)

	require.True(t, m.Login(ctx, "alice", "correct"))
	require.Empty(t, m.State().Error)
}

func TestLogin_UserFetchFailureLogsOut(t *testing.T) {
	ctx := context.Background()
	svc := newFakeIdentity()
	svc.meErr = errors.New("boom")
	store := tokenstore.NewMemory()
	m := newManager(t, svc, store)

	// the login step itself succeeded
	require.True(t, m.Login(ctx, "alice", "correct"))

	st := m.State()
	require.Empty(t, st.Token)
	require.Nil(t, st.User)
	require.Empty(t, m.Credential())
	_, found := storedToken(t, store)
	require.False(t, found)
}

func TestLogin_IsLoadingBracket(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())

	var states []session.State
	unsubscribe := m.Subscribe(func(s session.State) {
		states = append(states, s)
	})
	defer unsubscribe()

	require.True(t, m.Login(ctx, "alice", "correct"))

	require.NotEmpty(t, states)
	require.True(t, states[0].IsLoading)
	require.Empty(t, states[0].Error)
	last := states[len(states)-1]
	require.False(t, last.IsLoading)
	require.NotNil(t, last.User)
	for _, s := range states[:len(states)-1] {
		require.True(t, s.IsLoading, "loading must hold until the operation completes")
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("auto login matches direct login", func(t *testing.T) {
		regSvc := newFakeIdentity()
		regStore := tokenstore.NewMemory()
		registered := newManager(t, regSvc, regStore)
		require.True(t, registered.Register(ctx, "bob", "secret"))

		loginSvc := newFakeIdentity()
		loginSvc.passwords["bob"] = "secret"
		loginStore := tokenstore.NewMemory()
		loggedIn := newManager(t, loginSvc, loginStore)
		require.True(t, loggedIn.Login(ctx, "bob", "secret"))

		require.Equal(t, loggedIn.State(), registered.State())
		a, _ := storedToken(t, regStore)
		b, _ := storedToken(t, loginStore)
		require.Equal(t, b, a)
	})

	t.Run("rejected", func(t *testing.T) {
		svc := newFakeIdentity()
		store := tokenstore.NewMemory()
		m := newManager(t, svc, store)

		require.False(t, m.Register(ctx, "alice", "other"))

		st := m.State()
		require.Equal(t, "Username already registered", st.Error)
		require.Empty(t, st.Token)
		require.False(t, st.IsLoading)
		require.Equal(t, session.StatusFailed, st.Status())
		login, _, _ := svc.calls()
		require.Zero(t, login)
	})

	t.Run("fallback message", func(t *testing.T) {
		svc := newFakeIdentity()
		svc.regErr = errors.New("connection reset")
		m := newManager(t, svc, tokenstore.NewMemory())

		require.False(t, m.Register(ctx, "carol", "pw"))
		require.Equal(t, session.RegistrationFailedMessage, m.State().Error)
	})

	t.Run("auto login failure reports login error", func(t *testing.T) {
		svc := newFakeIdentity()
		svc.loginErr = &identity.APIError{StatusCode: http.StatusUnauthorized}
		m := newManager(t, svc, tokenstore.NewMemory())

		require.False(t, m.Register(ctx, "dave", "pw"))
		require.Equal(t, session.LoginFailedMessage, m.State().Error)
		require.False(t, m.State().IsLoading)
	})

	t.Run("loading holds across both steps", func(t *testing.T) {
		m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())

		var states []session.State
		unsubscribe := m.Subscribe(func(s session.State) {
			states = append(states, s)
		})
		defer unsubscribe()

		require.True(t, m.Register(ctx, "erin", "pw"))
		require.Greater(t, len(states), 1)
		for _, s := range states[:len(states)-1] {
			require.True(t, s.IsLoading)
		}
		require.False(t, states[len(states)-1].IsLoading)
	})

	t.Run("carries existing credential", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, tokenstore.NewMemory())
		require.True(t, m.Login(ctx, "alice", "correct"))

		require.True(t, m.Register(ctx, "gina", "pw"))
		svc.mu.Lock()
		defer svc.mu.Unlock()
		require.Equal(t, "tok-alice", svc.registerBearer)
	})

	t.Run("anonymous register sends no credential", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, tokenstore.NewMemory())

		require.True(t, m.Register(ctx, "hank", "pw"))
		svc.mu.Lock()
		defer svc.mu.Unlock()
		require.Empty(t, svc.registerBearer)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	m := newManager(t, newFakeIdentity(), store)
	require.True(t, m.Login(ctx, "alice", "correct"))

	for i := 0; i < 3; i++ {
		m.Logout(ctx)

		st := m.State()
		require.Empty(t, st.Token)
		require.Nil(t, st.User)
		require.Empty(t, m.Credential())
		require.Equal(t, session.StatusAnonymous, st.Status())
		_, found := storedToken(t, store)
		require.False(t, found)
	}
}

func TestLogout_FromAnonymous(t *testing.T) {
	m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())
	m.Logout(context.Background())
	require.Equal(t, session.State{}, m.State())
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store makes no call", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, tokenstore.NewMemory())

		m.Initialize(ctx)

		require.Equal(t, session.StatusAnonymous, m.State().Status())
		login, register, me := svc.calls()
		require.Zero(t, login+register+me)
	})

	t.Run("valid stored token restores session", func(t *testing.T) {
		svc := newFakeIdentity()
		svc.tokens["tok-alice"] = "alice"
		store := tokenstore.NewMemory()
		require.NoError(t, store.Set(ctx, session.DefaultStoreKey, "tok-alice"))
		m := newManager(t, svc, store)

		m.Initialize(ctx)

		st := m.State()
		require.Equal(t, "tok-alice", st.Token)
		require.Equal(t, "alice", st.User.Username)
		require.Equal(t, "tok-alice", m.Credential())
	})

	t.Run("stale stored token is purged", func(t *testing.T) {
		svc := newFakeIdentity()
		store := tokenstore.NewMemory()
		require.NoError(t, store.Set(ctx, session.DefaultStoreKey, "expired"))
		m := newManager(t, svc, store)

		m.Initialize(ctx)

		st := m.State()
		require.Equal(t, session.StatusAnonymous, st.Status())
		require.Empty(t, st.Error, "a stale credential is not surfaced as an error")
		_, found := storedToken(t, store)
		require.False(t, found)
	})

	t.Run("nil store is a no-op", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, nil)

		m.Initialize(ctx)
		require.True(t, m.Login(ctx, "alice", "correct"))
		m.Logout(ctx)

		require.Equal(t, session.StatusAnonymous, m.State().Status())
	})

	t.Run("failing store is absorbed", func(t *testing.T) {
		svc := newFakeIdentity()
		m := newManager(t, svc, brokenStore{})

		m.Initialize(ctx)
		require.True(t, m.Login(ctx, "alice", "correct"))
		require.Equal(t, "tok-alice", m.State().Token)
		m.Logout(ctx)
		require.Empty(t, m.State().Token)
	})
}

func TestFetchCurrentUser_NoToken(t *testing.T) {
	svc := newFakeIdentity()
	m := newManager(t, svc, tokenstore.NewMemory())

	m.FetchCurrentUser(context.Background())

	_, _, me := svc.calls()
	require.Zero(t, me)
}

func TestStoreKeyOption(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	m := session.New(newFakeIdentity(), store, session.WithLogger(zerolog.Nop()), session.WithStoreKey("auth"))

	require.True(t, m.Login(ctx, "alice", "correct"))
	v, ok, err := store.Get(ctx, "auth")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-alice", v)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())
	calls := 0
	unsubscribe := m.Subscribe(func(session.State) { calls++ })

	m.Logout(context.Background())
	require.Equal(t, 1, calls)

	unsubscribe()
	m.Logout(context.Background())
	require.Equal(t, 1, calls)
}

func TestState_IsACopy(t *testing.T) {
	m := newManager(t, newFakeIdentity(), tokenstore.NewMemory())
	require.True(t, m.Login(context.Background(), "alice", "correct"))

	st := m.State()
	st.User.Username = "mallory"
	require.Equal(t, "alice", m.State().User.Username)
}

// TestScenarios replays the documented HTTP exchanges against a real client.
func TestScenarios(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+identity.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var creds identity.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok1"}`))
	})
	mux.HandleFunc("GET "+identity.PathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"username":"alice"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("correct password", func(t *testing.T) {
		store := tokenstore.NewMemory()
		m := newManager(t, identity.New(srv.URL), store)

		require.True(t, m.Login(ctx, "alice", "correct"))
		st := m.State()
		require.Equal(t, "tok1", st.Token)
		require.Equal(t, "alice", st.User.Username)
		require.Equal(t, int64(1), st.User.ID)
		require.False(t, st.IsLoading)
		require.Empty(t, st.Error)
		v, _ := storedToken(t, store)
		require.Equal(t, "tok1", v)
	})

	t.Run("wrong password", func(t *testing.T) {
		m := newManager(t, identity.New(srv.URL), tokenstore.NewMemory())

		require.False(t, m.Login(ctx, "alice", "wrong"))
		st := m.State()
		require.Equal(t, "Invalid credentials", st.Error)
		require.Empty(t, st.Token)
	})

	t.Run("restore with rejected token", func(t *testing.T) {
		store := tokenstore.NewMemory()
		require.NoError(t, store.Set(ctx, session.DefaultStoreKey, "revoked"))
		m := newManager(t, identity.New(srv.URL), store)

		m.Initialize(ctx)
		require.Equal(t, session.StatusAnonymous, m.State().Status())
		_, found := storedToken(t, store)
		require.False(t, found)
	})

	t.Run("service unreachable", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		url := down.URL
		down.Close()
		m := newManager(t, identity.New(url), tokenstore.NewMemory())

		require.False(t, m.Login(ctx, "alice", "correct"))
		require.Equal(t, session.LoginFailedMessage, m.State().Error)
	})
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}
func (brokenStore) Set(context.Context, string, string) error { return errors.New("storage unavailable") }
func (brokenStore) Delete(context.Context, string) error      { return errors.New("storage unavailable") }

// gatedIdentity holds CurrentUser for one token until released, then rejects it.
type gatedIdentity struct {
	*fakeIdentity
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedIdentity) CurrentUser(ctx context.Context, bearer string) (*identity.User, error) {
	if bearer != g.gated {
		return g.fakeIdentity.CurrentUser(ctx, bearer)
	}
	close(g.entered)
	<-g.release
	return nil, &identity.APIError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
}

func TestFetchCurrentUser_FailureAfterNewerLogin(t *testing.T) {
	ctx := context.Background()
	svc := &gatedIdentity{
		fakeIdentity: newFakeIdentity(),
		gated:        "tok-old",
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	store := tokenstore.NewMemory()
	require.NoError(t, store.Set(ctx, session.DefaultStoreKey, "tok-old"))
	m := newManager(t, svc, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Initialize(ctx)
	}()
	<-svc.entered

	require.True(t, m.Login(ctx, "alice", "correct"))
	close(svc.release)
	<-done

	st := m.State()
	require.Equal(t, "tok-alice", st.Token)
	require.NotNil(t, st.User)
	require.Equal(t, "alice", st.User.Username)
	require.Equal(t, "tok-alice", m.Credential())

	stored, found := storedToken(t, store)
	require.True(t, found)
	require.Equal(t, "tok-alice", stored)
}

func TestConcurrentLoginLogout_StoreMirrorsState(t *testing.T) {
	ctx := context.Background()
	svc := newFakeIdentity()
	store := tokenstore.NewMemory()
	m := newManager(t, svc, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Login(ctx, "alice", "correct")
		}()
		go func() {
			defer wg.Done()
			m.Logout(ctx)
		}()
	}
	wg.Wait()

	st := m.State()
	stored, found := storedToken(t, store)
	if st.Token == "" {
		require.False(t, found)
		require.Nil(t, st.User)
		require.Empty(t, m.Credential())
	} else {
		require.True(t, found)
		require.Equal(t, st.Token, stored)
		require.Equal(t, st.Token, m.Credential())
	}
	require.True(t, st.User == nil || st.Token != "")
}
