package server

import (
	"net/http"
	"net/url"

	"github.com/Carlvinchi/ams/session"
)

// browserSessionID returns the id carried by the session cookie.
func (s *Server) browserSessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// managerFor returns the Manager of the requesting browser. A cookie that
// names no stored session is treated as no cookie at all.
func (s *Server) managerFor(r *http.Request) (*session.Manager, bool) {
	id, ok := s.browserSessionID(r)
	if !ok {
		return nil, false
	}
	return s.sessions.Lookup(r.Context(), id)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectWithQuery(w, r, path, url.Values{"error": {errorMsg}})
}

// redirectWithMessage redirects with a success notice
func redirectWithMessage(w http.ResponseWriter, r *http.Request, path, msg string) {
	redirectWithQuery(w, r, path, url.Values{"success": {msg}})
}

func redirectWithQuery(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	redirectSuccess(w, r, path+"?"+query.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
