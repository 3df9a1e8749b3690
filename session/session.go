// Package session owns the browser-side authentication state of the dashboard:
// signing in against the AMS backend, keeping the access token fresh and
// deciding whether the current user may see a role-restricted page.
package session

import (
	"time"

	"github.com/Carlvinchi/ams/roles"
)

// RefreshAccessTokenError is the marker stored on a Session whose refresh token
// was rejected by the backend.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// Credentials are only held for the duration of a sign-in call.
type Credentials struct {
	Email    string
	Password string
}

// String keeps the password out of logs and %v output.
func (c Credentials) String() string {
	return "Credentials{Email: " + c.Email + ", Password: [REDACTED]}"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token may no longer be sent to the backend.
func (p TokenPair) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type Session struct {
	UserID int64      `json:"user_id"`
	Email  string     `json:"email"`
	Role   roles.Role `json:"role"`
	Tokens TokenPair  `json:"tokens"`

	// Error is empty for a healthy session and RefreshAccessTokenError once the
	// backend refused to refresh it.
	Error string `json:"error,omitempty"`
}

func (s Session) Errored() bool {
	return s.Error != ""
}

// CanAccess reports whether the session may render a view restricted to
// allowed. An errored session can access nothing.
func (s Session) CanAccess(allowed ...roles.Role) bool {
	if s.Errored() {
		return false
	}
	return roles.CanAccess(s.Role, allowed)
}

// Dashboard is the landing page for the session's role.
func (s Session) Dashboard() string {
	return roles.DashboardFor(s.Role)
}
