package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

type sessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sessionResponse is what the browser may know about its session. Tokens
// never leave the server.
type sessionResponse struct {
	User    *sessionUser `json:"user,omitempty"`
	Expires string       `json:"expires,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SessionAPIHandler reports the current browser session as JSON, or {} when
// signed out. A stale access token is refreshed first.
func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Cache-Control", "no-store")

		m, ok := s.managerFor(r)
		if !ok {
			writeJSON(w, http.StatusOK, sessionResponse{})
			return
		}

		if _, err := m.ValidAccessToken(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Debug().Err(err).Str("request_id", RequestID(ctx)).Msg("session endpoint refresh")
		}

		sess, err := m.CurrentSession(ctx)
		if err != nil {
			log.Err(err).Str("request_id", RequestID(ctx)).Msg("failed to load session")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		if sess == nil {
			writeJSON(w, http.StatusOK, sessionResponse{})
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{
			User: &sessionUser{
				ID:    sess.UserID,
				Email: sess.Email,
				Role:  sess.Role.String(),
			},
			Expires: sess.Tokens.ExpiresAt.UTC().Format(time.RFC3339),
			Error:   sess.Error,
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
