package server

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/Carlvinchi/ams/forms"
	"github.com/Carlvinchi/ams/roles"
	"github.com/Carlvinchi/ams/session"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName   string
	Error     string
	Email     string // Preserve email on error
	CSRFField template.HTML
}

// LoginPageUIHandler displays the login page (GET /login). A browser that is
// already signed in goes straight to its dashboard.
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m, ok := s.managerFor(r); ok {
			if sess, err := m.CurrentSession(r.Context()); err == nil && sess != nil && !sess.Errored() && sess.Role.Valid() {
				redirectSuccess(w, r, sess.Dashboard())
				return
			}
		}

		data := LoginPageData{
			AppName:   s.config.GetAppName(),
			Error:     r.URL.Query().Get("error"),
			Email:     r.URL.Query().Get("email"),
			CSRFField: csrf.TemplateField(r),
		}
		s.renderTemplate(w, r, "login.html", data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.Login{
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}
		if err := s.validator.ValidateLogin(form); err != nil {
			s.renderLoginError(w, r, err.Error(), form.Email)
			return
		}

		// A fresh id on every sign in. The previous browser session is only
		// dropped once the new one exists.
		id := s.sessions.NewID()
		sess, err := s.sessions.Manager(id).SignIn(r.Context(), session.Credentials{Email: form.Email, Password: form.Password})
		if err != nil {
			s.sessions.Forget(id)
			log.Info().Err(err).Str("request_id", RequestID(r.Context())).Msg("sign in failed")
			s.renderLoginError(w, r, session.UserMessage(err), form.Email)
			return
		}

		if oldID, ok := s.browserSessionID(r); ok {
			if m, found := s.sessions.Lookup(r.Context(), oldID); found {
				if err := m.SignOut(r.Context()); err != nil {
					log.Err(err).Msg("failed to clear previous browser session")
				}
			}
			s.sessions.Forget(oldID)
		}

		log.Info().Int64("user_id", sess.UserID).Str("role", sess.Role.String()).Msg("signed in")
		s.setSessionCookie(w, r, id)
		redirectSuccess(w, r, sess.Dashboard())
	}
}

// LogoutHandler clears the browser's session (GET for links, POST from the menu)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m, ok := s.managerFor(r); ok {
			if err := m.SignOut(r.Context()); err != nil {
				log.Err(err).Msg("failed to delete browser session")
			}
		}
		if id, ok := s.browserSessionID(r); ok {
			s.sessions.Forget(id)
		}
		s.clearSessionCookie(w, r)
		redirectSuccess(w, r, roles.SignInPath)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	query := url.Values{"error": {errorMsg}}
	if email != "" {
		query.Set("email", email)
	}
	redirectWithQuery(w, r, RouteLogin, query)
}
