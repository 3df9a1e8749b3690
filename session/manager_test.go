package session_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/backend/backendfake"
	"github.com/Carlvinchi/ams/roles"
	"github.com/Carlvinchi/ams/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "a@x.com"
	testPassword = "longenough"
)

var testCreds = session.Credentials{Email: testEmail, Password: testPassword}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	fake    *backendfake.Backend
	client  *backend.Client
	store   *session.MemoryStore
	clock   *testClock
	manager *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fake := backendfake.New(backendfake.WithBcryptCost(bcrypt.MinCost))
	_, err := fake.AddUser(backendfake.NewUser{Email: testEmail, Password: testPassword, Roles: []string{"coach"}})
	require.NoError(t, err)
	_, err = fake.AddUser(backendfake.NewUser{Email: "norole@x.com", Password: testPassword})
	require.NoError(t, err)
	_, err = fake.AddUser(backendfake.NewUser{Email: "physio@x.com", Password: testPassword, Roles: []string{"physio"}})
	require.NoError(t, err)

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	f := &testFixture{
		fake:   fake,
		client: backend.New(srv.URL, backend.WithHTTPClient(srv.Client())),
		store:  session.NewMemoryStore(),
		clock:  &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.manager = newManager(f.client, f.store, f.clock)
	return f
}

func newManager(client session.Backend, store session.Store, clock *testClock) *session.Manager {
	return session.NewManager(store,
		session.NewAuthenticator(client, session.WithAuthenticatorNowFunc(clock.Now)),
		session.NewRefresher(client, session.WithRefresherNowFunc(clock.Now)),
		session.WithNowFunc(clock.Now),
	)
}

func (f *testFixture) signIn(t *testing.T) session.Session {
	t.Helper()
	s, err := f.manager.SignIn(context.Background(), testCreds)
	require.NoError(t, err)
	return s
}

func TestSignIn(t *testing.T) {
	t.Run("coach lands on the coach dashboard", func(t *testing.T) {
		f := setupTestFixture(t)

		s := f.signIn(t)
		require.Equal(t, roles.Coach, s.Role)
		require.Equal(t, testEmail, s.Email)
		require.NotZero(t, s.UserID)
		require.Equal(t, "/coach/", roles.DashboardFor(s.Role))
		require.Equal(t, "/coach/", s.Dashboard())
		require.Equal(t, f.clock.Now().Add(session.DefaultLoginTokenTTL), s.Tokens.ExpiresAt)
		require.NotEmpty(t, s.Tokens.RefreshToken)

		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Equal(t, s, *stored)
		require.EqualValues(t, 1, f.fake.LoginCalls())
		require.EqualValues(t, 1, f.fake.MeCalls())
	})

	t.Run("wrong password leaves the store empty", func(t *testing.T) {
		f := setupTestFixture(t)

		_, err := f.manager.SignIn(context.Background(), session.Credentials{Email: testEmail, Password: "wrongpassword"})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
		require.Equal(t, "Invalid email or password", session.UserMessage(err))

		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, stored)
		require.Zero(t, f.fake.MeCalls())
	})

	t.Run("failed sign in keeps the existing session", func(t *testing.T) {
		f := setupTestFixture(t)
		before := f.signIn(t)

		_, err := f.manager.SignIn(context.Background(), session.Credentials{Email: "nobody@x.com", Password: testPassword})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)

		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Equal(t, before, *stored)
	})

	t.Run("profile fetch failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.fake.FailProfile(true)

		_, err := f.manager.SignIn(context.Background(), testCreds)
		require.ErrorIs(t, err, session.ErrProfileFetchFailed)
		require.Equal(t, "Invalid email or password", session.UserMessage(err))

		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, stored)
	})

	t.Run("user without a role", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.SignIn(context.Background(), session.Credentials{Email: "norole@x.com", Password: testPassword})
		require.ErrorIs(t, err, session.ErrProfileFetchFailed)
	})

	t.Run("user with an unknown role", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.SignIn(context.Background(), session.Credentials{Email: "physio@x.com", Password: testPassword})
		require.ErrorIs(t, err, session.ErrProfileFetchFailed)
	})

	t.Run("backend unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		clock := &testClock{now: time.Now()}
		m := newManager(backend.New(url), session.NewMemoryStore(), clock)
		_, err := m.SignIn(context.Background(), testCreds)
		require.ErrorIs(t, err, session.ErrNetworkFailure)
		require.ErrorIs(t, err, backend.ErrUnavailable)
		require.Contains(t, session.UserMessage(err), "An unexpected error occurred. Please try again - ")
	})
}

func TestSignOut(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.signIn(t)

	require.NoError(t, f.manager.SignOut(ctx))
	stored, err := f.manager.CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, stored)

	require.NoError(t, f.manager.SignOut(ctx))

	_, err = f.manager.ValidAccessToken(ctx)
	require.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestValidAccessToken(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.ValidAccessToken(context.Background())
		require.ErrorIs(t, err, session.ErrUnauthenticated)
	})

	t.Run("fresh token needs no network call", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.signIn(t)
		ctx := context.Background()

		first, err := f.manager.ValidAccessToken(ctx)
		require.NoError(t, err)
		second, err := f.manager.ValidAccessToken(ctx)
		require.NoError(t, err)

		require.Equal(t, s.Tokens.AccessToken, first)
		require.Equal(t, first, second)
		require.Zero(t, f.fake.RefreshCalls())
	})

	t.Run("token is refreshed at its expiry instant", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.signIn(t)

		f.clock.Advance(session.DefaultLoginTokenTTL)
		token, err := f.manager.ValidAccessToken(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, s.Tokens.AccessToken, token)
		require.EqualValues(t, 1, f.fake.RefreshCalls())
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.signIn(t)
		f.clock.Advance(2 * time.Hour)
		f.fake.SetRefreshDelay(100 * time.Millisecond)

		const callers = 8
		var (
			wg     sync.WaitGroup
			tokens = make([]string, callers)
			errs   = make([]error, callers)
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tokens[i], errs[i] = f.manager.ValidAccessToken(context.Background())
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i], fmt.Sprintf("caller %d", i))
			require.Equal(t, tokens[0], tokens[i])
		}
		require.NotEqual(t, s.Tokens.AccessToken, tokens[0])
		require.EqualValues(t, 1, f.fake.RefreshCalls())

		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Equal(t, tokens[0], stored.Tokens.AccessToken)
		require.Equal(t, s.Tokens.RefreshToken, stored.Tokens.RefreshToken)
		require.Equal(t, f.clock.Now().Add(session.DefaultRefreshTokenTTL), stored.Tokens.ExpiresAt)
	})

	t.Run("rejected refresh marks the session errored", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(t)
		f.clock.Advance(2 * time.Hour)
		f.fake.FailRefresh(true)
		ctx := context.Background()

		_, err := f.manager.ValidAccessToken(ctx)
		require.ErrorIs(t, err, session.ErrRefreshAccessToken)

		stored, err := f.manager.CurrentSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Equal(t, session.RefreshAccessTokenError, stored.Error)
		require.True(t, stored.Errored())
		require.False(t, stored.CanAccess())
		require.False(t, stored.CanAccess(roles.Coach))

		_, err = f.manager.ValidAccessToken(ctx)
		require.ErrorIs(t, err, session.ErrRefreshAccessToken)
		require.EqualValues(t, 1, f.fake.RefreshCalls())
	})

	t.Run("network failure during refresh keeps the session", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		clock := &testClock{now: time.Now()}
		store := session.NewMemoryStore()
		before := session.Session{
			UserID: 7,
			Email:  testEmail,
			Role:   roles.Athlete,
			Tokens: session.TokenPair{AccessToken: "old", RefreshToken: "refresh", ExpiresAt: clock.Now().Add(-time.Minute)},
		}
		require.NoError(t, store.Save(context.Background(), before))

		m := newManager(backend.New(url), store, clock)
		_, err := m.ValidAccessToken(context.Background())
		require.ErrorIs(t, err, session.ErrNetworkFailure)

		stored, err := m.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Equal(t, before, *stored)
	})

	t.Run("cancelled caller does not cancel the refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.signIn(t)
		f.clock.Advance(2 * time.Hour)
		f.fake.SetRefreshDelay(150 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.manager.ValidAccessToken(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		require.Eventually(t, func() bool {
			stored, err := f.manager.CurrentSession(context.Background())
			return err == nil && stored != nil && stored.Tokens.AccessToken != s.Tokens.AccessToken
		}, 2*time.Second, 10*time.Millisecond)
		require.EqualValues(t, 1, f.fake.RefreshCalls())
	})

	t.Run("sign out during refresh discards the result", func(t *testing.T) {
		f := setupTestFixture(t)
		f.signIn(t)
		f.clock.Advance(2 * time.Hour)
		f.fake.SetRefreshDelay(100 * time.Millisecond)

		done := make(chan error, 1)
		go func() {
			_, err := f.manager.ValidAccessToken(context.Background())
			done <- err
		}()
		require.Eventually(t, func() bool { return f.fake.RefreshCalls() == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, f.manager.SignOut(context.Background()))

		require.ErrorIs(t, <-done, session.ErrUnauthenticated)
		stored, err := f.manager.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, stored)
	})
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)
	f.clock.Advance(2 * time.Hour)

	api := f.client.Authorized(f.manager.TokenSource(context.Background()))
	user, err := api.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)
	require.EqualValues(t, 1, f.fake.RefreshCalls())

	require.NoError(t, f.manager.SignOut(context.Background()))
	_, err = api.Me(context.Background())
	require.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestCredentialsAreRedacted(t *testing.T) {
	out := fmt.Sprintf("%v", testCreds)
	require.Contains(t, out, testEmail)
	require.NotContains(t, out, testPassword)
}
