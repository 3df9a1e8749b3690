package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/roles"
	"github.com/Carlvinchi/ams/session"
	"github.com/rs/zerolog/log"
)

// SessionHandler is a page that needs the signed in browser. The Manager and
// the Session the guard checked are handed over explicitly.
type SessionHandler func(w http.ResponseWriter, r *http.Request, m *session.Manager, sess session.Session)

// RequireRoles guards a page:
//   - no session, or one whose refresh was rejected, goes to the sign-in page;
//   - a role outside allowed goes to its own dashboard;
//   - an empty allowed list admits every signed in role.
//
// The access token is brought up to date first, so a stale token is refreshed
// before the page renders.
func (s *Server) RequireRoles(next SessionHandler, allowed ...roles.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		m, ok := s.managerFor(r)
		if !ok {
			redirectSuccess(w, r, roles.SignInPath)
			return
		}

		if _, err := m.ValidAccessToken(ctx); err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return
			case errors.Is(err, session.ErrNetworkFailure):
				// the stored session is intact, render with what we have
				log.Warn().Err(err).Str("request_id", RequestID(ctx)).Msg("token refresh unavailable")
			case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrRefreshAccessToken):
				redirectSuccess(w, r, roles.SignInPath)
				return
			default:
				log.Err(err).Str("request_id", RequestID(ctx)).Msg("session check failed")
				http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		sess, err := m.CurrentSession(ctx)
		if err != nil {
			log.Err(err).Str("request_id", RequestID(ctx)).Msg("failed to load session")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		if sess == nil || sess.Errored() {
			redirectSuccess(w, r, roles.SignInPath)
			return
		}
		if !sess.CanAccess(allowed...) {
			redirectSuccess(w, r, sess.Dashboard())
			return
		}

		next(w, r, m, *sess)
	}
}

// handleBackendAuthError redirects to sign in when err means the browser can no
// longer act against the backend. It reports whether it wrote a response.
func handleBackendAuthError(w http.ResponseWriter, r *http.Request, err error) bool {
	if errors.Is(err, session.ErrUnauthenticated) ||
		errors.Is(err, session.ErrRefreshAccessToken) ||
		backend.IsUnauthorized(err) {
		redirectSuccess(w, r, roles.SignInPath)
		return true
	}
	return false
}
