package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Carlvinchi/ams/roles"
	"github.com/Carlvinchi/ams/session"
	"github.com/stretchr/testify/require"
)

func TestSessionCanAccess(t *testing.T) {
	s := session.Session{Role: roles.Coach}

	require.True(t, s.CanAccess())
	require.True(t, s.CanAccess(roles.Coach, roles.Admin))
	require.False(t, s.CanAccess(roles.Athlete))

	s.Error = session.RefreshAccessTokenError
	require.False(t, s.CanAccess())
	require.False(t, s.CanAccess(roles.Coach))
}

func TestTokenPairExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := session.TokenPair{ExpiresAt: now}

	require.True(t, p.Expired(now))
	require.True(t, p.Expired(now.Add(time.Second)))
	require.False(t, p.Expired(now.Add(-time.Second)))
	require.True(t, session.TokenPair{}.Expired(now))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	s, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	require.NoError(t, store.Save(ctx, session.Session{UserID: 1, Role: roles.Admin}))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, roles.Admin, s.Role)

	// Loaded sessions are copies.
	s.Role = roles.Athlete
	again, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, roles.Admin, again.Role)

	require.NoError(t, store.Clear(ctx))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestUserMessage(t *testing.T) {
	require.Empty(t, session.UserMessage(nil))
	require.Equal(t, "Invalid email or password", session.UserMessage(fmt.Errorf("%w: x", session.ErrInvalidCredentials)))

	cause := errors.New("connection refused")
	msg := session.UserMessage(fmt.Errorf("%w: %w", session.ErrNetworkFailure, fmt.Errorf("dial: %w", cause)))
	require.Equal(t, "An unexpected error occurred. Please try again - connection refused", msg)
}
