package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/roles"
	"golang.org/x/oauth2"
)

// DefaultLoginTokenTTL is how long an access token obtained by signing in is
// trusted before a refresh is attempted.
const DefaultLoginTokenTTL = 60 * time.Minute

// Backend is the part of the AMS API the session lifecycle needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.TokenResponse, error)
	Authorized(ts oauth2.TokenSource) *backend.AuthorizedClient
}

// Authenticator turns credentials into a Session. It has no side effects
// besides the login and profile calls.
type Authenticator struct {
	backend Backend
	ttl     time.Duration
	nowFunc func() time.Time
}

type AuthenticatorOption func(*Authenticator)

func WithLoginTokenTTL(ttl time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

func WithAuthenticatorNowFunc(now func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		a.nowFunc = now
	}
}

func NewAuthenticator(b Backend, options ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		backend: b,
		ttl:     DefaultLoginTokenTTL,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Authenticate logs in and immediately fetches the profile to learn the
// user's id and role.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	tokens, err := a.backend.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return Session{}, classify(err, ErrInvalidCredentials)
	}
	if tokens.AccessToken == "" {
		return Session{}, fmt.Errorf("%w: login returned no access token", ErrInvalidCredentials)
	}

	api := a.backend.Authorized(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens.AccessToken,
		TokenType:   "Bearer",
	}))
	user, err := api.Me(ctx)
	if err != nil {
		return Session{}, classify(err, ErrProfileFetchFailed)
	}

	roleName, ok := user.PrimaryRole()
	if !ok {
		return Session{}, fmt.Errorf("%w: user %d has no role", ErrProfileFetchFailed, user.ID)
	}
	role := roles.Role(roleName)
	if !role.Valid() {
		return Session{}, fmt.Errorf("%w: user %d has unknown role %q", ErrProfileFetchFailed, user.ID, roleName)
	}

	return Session{
		UserID: user.ID,
		Email:  user.Email,
		Role:   role,
		Tokens: TokenPair{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    a.nowFunc().Add(a.ttl),
		},
	}, nil
}
