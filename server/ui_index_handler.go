package server

import (
	"net/http"

	"github.com/Carlvinchi/ams/roles"
)

// IndexHandler sends the browser to its dashboard, or to the sign-in page when
// it has no usable session.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := s.managerFor(r)
		if !ok {
			redirectSuccess(w, r, roles.SignInPath)
			return
		}
		sess, err := m.CurrentSession(r.Context())
		if err != nil || sess == nil || sess.Errored() {
			redirectSuccess(w, r, roles.SignInPath)
			return
		}
		redirectSuccess(w, r, sess.Dashboard())
	}
}
