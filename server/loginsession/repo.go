// Package loginsession persists the dashboard's per-browser sessions and
// hands out one session.Manager per browser.
package loginsession

import (
	"context"
	"time"

	"github.com/Carlvinchi/ams/session"
)

// Record is a stored session together with its bookkeeping timestamps.
type Record struct {
	ID        string
	Session   session.Session
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repo stores sessions keyed by the browser session id held in the cookie.
// Get returns errors.ErrSessionNotFound for an unknown id.
type Repo interface {
	Upsert(ctx context.Context, id string, s session.Session) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes records not updated since before and reports how many went.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
