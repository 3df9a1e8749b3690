package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// Manager is the only writer of its Store. One Manager serves one browser
// context and is safe for concurrent use by that context's requests.
type Manager struct {
	store     Store
	auth      *Authenticator
	refresher *Refresher
	nowFunc   func() time.Time

	// mu orders the read-compare-write sequences against the store.
	mu     sync.Mutex
	flight singleflight.Group
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(store Store, auth *Authenticator, refresher *Refresher, options ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		auth:      auth,
		refresher: refresher,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// SignIn authenticates and stores the resulting session. On failure the store
// is left as it was.
func (m *Manager) SignIn(ctx context.Context, creds Credentials) (Session, error) {
	s, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// SignOut drops the stored session. Signing out twice is not an error.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentSession returns nil when nobody is signed in.
func (m *Manager) CurrentSession(ctx context.Context) (*Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// ValidAccessToken returns an access token that has not passed its expiry,
// refreshing it first when needed. Concurrent callers that find the token
// expired share a single refresh. A caller whose ctx ends stops waiting, but
// the refresh runs to completion and its result is still stored.
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	s, err := m.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	if token, done, err := m.usable(s); done {
		return token, err
	}

	ch := m.flight.DoChan(refreshFlightKey, func() (interface{}, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// usable decides whether s can answer ValidAccessToken without a refresh.
func (m *Manager) usable(s *Session) (token string, done bool, err error) {
	switch {
	case s == nil:
		return "", true, ErrUnauthenticated
	case s.Errored():
		return "", true, ErrRefreshAccessToken
	case !s.Tokens.Expired(m.nowFunc()):
		return s.Tokens.AccessToken, true, nil
	}
	return "", false, nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	s, err := m.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	// A flight that finished just before this one started may already have
	// replaced the token.
	if token, done, err := m.usable(s); done {
		return token, err
	}

	pair, err := m.refresher.Refresh(ctx, s.Tokens.RefreshToken)
	if err != nil && !errors.Is(err, ErrRefreshAccessToken) {
		log.Warn().Err(err).Int64("user_id", s.UserID).Msg("token refresh failed, session kept")
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, loadErr := m.store.Load(ctx)
	if loadErr != nil {
		return "", fmt.Errorf("load session: %w", loadErr)
	}
	if current == nil {
		return "", ErrUnauthenticated
	}
	if current.Tokens.RefreshToken != s.Tokens.RefreshToken {
		// Signed out and back in while the refresh was in flight.
		if token, done, err := m.usable(current); done {
			return token, err
		}
		return "", ErrUnauthenticated
	}

	if err != nil {
		current.Error = RefreshAccessTokenError
		if saveErr := m.store.Save(ctx, *current); saveErr != nil {
			return "", fmt.Errorf("save session: %w", saveErr)
		}
		log.Info().Int64("user_id", current.UserID).Msg("refresh token rejected, session marked errored")
		return "", err
	}

	current.Tokens = pair
	if err := m.store.Save(ctx, *current); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return pair.AccessToken, nil
}

// TokenSource exposes ValidAccessToken to oauth2 aware HTTP clients. Each call
// to Token goes through the single flight refresh.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, m: m}
}

type managerTokenSource struct {
	ctx context.Context
	m   *Manager
}

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.m.ValidAccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
