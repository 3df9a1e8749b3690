package session

import (
	"context"
	"fmt"
	"time"
)

// DefaultRefreshTokenTTL is the lifetime given to an access token obtained
// through a refresh.
const DefaultRefreshTokenTTL = 24 * time.Hour

type Refresher struct {
	backend Backend
	ttl     time.Duration
	nowFunc func() time.Time
}

type RefresherOption func(*Refresher)

func WithRefreshTokenTTL(ttl time.Duration) RefresherOption {
	return func(r *Refresher) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithRefresherNowFunc(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		r.nowFunc = now
	}
}

func NewRefresher(b Backend, options ...RefresherOption) *Refresher {
	r := &Refresher{
		backend: b,
		ttl:     DefaultRefreshTokenTTL,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh trades refreshToken for a new access token. The backend does not
// rotate refresh tokens, so the one passed in is carried over.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	tokens, err := r.backend.Refresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, classify(err, ErrRefreshAccessToken)
	}
	if tokens.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh returned no access token", ErrRefreshAccessToken)
	}

	next := TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    r.nowFunc().Add(r.ttl),
	}
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	return next, nil
}
