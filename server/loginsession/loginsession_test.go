package loginsession_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/backend/backendfake"
	"github.com/Carlvinchi/ams/internal/errors"
	"github.com/Carlvinchi/ams/roles"
	"github.com/Carlvinchi/ams/server/loginsession"
	"github.com/Carlvinchi/ams/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testSession(email string) session.Session {
	return session.Session{
		UserID: 42,
		Email:  email,
		Role:   roles.Athlete,
		Tokens: session.TokenPair{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func repos(t *testing.T) map[string]loginsession.Repo {
	t.Helper()

	memSQLite, err := loginsession.OpenSQLiteRepo(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { memSQLite.Close() })

	fileSQLite, err := loginsession.OpenSQLiteRepo(filepath.Join(t.TempDir(), "data", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { fileSQLite.Close() })

	return map[string]loginsession.Repo{
		"in-memory":      loginsession.NewInMemoryRepo(),
		"sqlite memory":  memSQLite,
		"sqlite on disk": fileSQLite,
	}
}

func TestRepo(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "missing")
			require.ErrorIs(t, err, errors.ErrSessionNotFound)

			require.NoError(t, repo.Upsert(ctx, "b1", testSession("one@x.com")))
			rec, err := repo.Get(ctx, "b1")
			require.NoError(t, err)
			require.Equal(t, "b1", rec.ID)
			require.Equal(t, "one@x.com", rec.Session.Email)
			require.True(t, testSession("").Tokens.ExpiresAt.Equal(rec.Session.Tokens.ExpiresAt))
			require.False(t, rec.CreatedAt.IsZero())

			updated := testSession("two@x.com")
			updated.Error = session.RefreshAccessTokenError
			require.NoError(t, repo.Upsert(ctx, "b1", updated))
			rec2, err := repo.Get(ctx, "b1")
			require.NoError(t, err)
			require.Equal(t, "two@x.com", rec2.Session.Email)
			require.True(t, rec2.Session.Errored())
			require.True(t, rec.CreatedAt.Equal(rec2.CreatedAt))

			require.NoError(t, repo.Delete(ctx, "b1"))
			require.NoError(t, repo.Delete(ctx, "b1"))
			_, err = repo.Get(ctx, "b1")
			require.ErrorIs(t, err, errors.ErrSessionNotFound)

			require.Error(t, repo.Upsert(ctx, "", testSession("x@x.com")))
		})
	}
}

func TestRepoDeleteExpired(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Upsert(ctx, "old", testSession("old@x.com")))
			require.NoError(t, repo.Upsert(ctx, "older", testSession("older@x.com")))

			n, err := repo.DeleteExpired(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			require.Zero(t, n)

			n, err = repo.DeleteExpired(ctx, time.Now().Add(time.Hour))
			require.NoError(t, err)
			require.EqualValues(t, 2, n)

			_, err = repo.Get(ctx, "old")
			require.ErrorIs(t, err, errors.ErrSessionNotFound)
		})
	}
}

type registryFixture struct {
	fake   *backendfake.Backend
	client *backend.Client
}

func setupRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()
	fake := backendfake.New(backendfake.WithBcryptCost(bcrypt.MinCost))
	_, err := fake.AddUser(backendfake.NewUser{Email: "a@x.com", Password: "longenough", Roles: []string{"coach"}})
	require.NoError(t, err)

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return &registryFixture{fake: fake, client: backend.New(srv.URL, backend.WithHTTPClient(srv.Client()))}
}

func (f *registryFixture) factory(store session.Store) *session.Manager {
	return session.NewManager(store, session.NewAuthenticator(f.client), session.NewRefresher(f.client))
}

func TestRegistry(t *testing.T) {
	f := setupRegistryFixture(t)
	ctx := context.Background()
	reg := loginsession.NewRegistry(loginsession.NewInMemoryRepo(), f.factory)

	id := reg.NewID()
	require.NotEqual(t, id, reg.NewID())

	m := reg.Manager(id)
	require.Same(t, m, reg.Manager(id))
	require.NotSame(t, m, reg.Manager(reg.NewID()))
	require.Equal(t, 2, reg.Len())

	_, err := m.SignIn(ctx, session.Credentials{Email: "a@x.com", Password: "longenough"})
	require.NoError(t, err)

	// Browsers are isolated from one another.
	other, err := reg.Manager(reg.NewID()).CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, other)

	// A forgotten Manager is rebuilt from the repo.
	reg.Forget(id)
	s, err := reg.Manager(id).CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, roles.Coach, s.Role)
}

func TestRegistryLookup(t *testing.T) {
	f := setupRegistryFixture(t)
	ctx := context.Background()
	reg := loginsession.NewRegistry(loginsession.NewInMemoryRepo(), f.factory)

	t.Run("unknown ids get no manager", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			m, ok := reg.Lookup(ctx, reg.NewID())
			require.False(t, ok)
			require.Nil(t, m)
		}
		_, ok := reg.Lookup(ctx, "")
		require.False(t, ok)
		require.Zero(t, reg.Len())
	})

	t.Run("stored sessions are found", func(t *testing.T) {
		id := reg.NewID()
		signedIn := reg.Manager(id)
		_, err := signedIn.SignIn(ctx, session.Credentials{Email: "a@x.com", Password: "longenough"})
		require.NoError(t, err)

		m, ok := reg.Lookup(ctx, id)
		require.True(t, ok)
		require.Same(t, signedIn, m)

		// rebuilt from the repo once forgotten
		reg.Forget(id)
		m, ok = reg.Lookup(ctx, id)
		require.True(t, ok)
		s, err := m.CurrentSession(ctx)
		require.NoError(t, err)
		require.Equal(t, roles.Coach, s.Role)
		require.Equal(t, 1, reg.Len())
	})
}

func TestRegistryRehydratesFromSQLite(t *testing.T) {
	f := setupRegistryFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	repo, err := loginsession.OpenSQLiteRepo(path)
	require.NoError(t, err)
	reg := loginsession.NewRegistry(repo, f.factory)
	id := reg.NewID()
	signedIn, err := reg.Manager(id).SignIn(ctx, session.Credentials{Email: "a@x.com", Password: "longenough"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := loginsession.OpenSQLiteRepo(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	restored, err := loginsession.NewRegistry(reopened, f.factory).Manager(id).CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, signedIn.UserID, restored.UserID)
	require.Equal(t, signedIn.Tokens.AccessToken, restored.Tokens.AccessToken)
	require.True(t, signedIn.Tokens.ExpiresAt.Equal(restored.Tokens.ExpiresAt))
}

func TestRegistrySweep(t *testing.T) {
	f := setupRegistryFixture(t)
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }

	repo := loginsession.NewInMemoryRepo()
	reg := loginsession.NewRegistry(repo, f.factory, loginsession.WithRegistryNowFunc(clock))
	id := reg.NewID()
	_, err := reg.Manager(id).SignIn(ctx, session.Credentials{Email: "a@x.com", Password: "longenough"})
	require.NoError(t, err)

	n, err := reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, reg.Len())

	now = now.Add(2 * time.Hour)
	n, err = reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Zero(t, reg.Len())

	s, err := reg.Manager(id).CurrentSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}
