package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/Carlvinchi/ams/session"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"
)

// PageData is handed to every page rendered inside layout.html
type PageData struct {
	AppName   string
	PageTitle string
	Session   session.Session
	Nav       []navItem
	CSRFField template.HTML
	Error     string
	Success   string
	Data      any
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

func (s *Server) newPageData(r *http.Request, sess session.Session, title, active string) PageData {
	return PageData{
		AppName:   s.config.GetAppName(),
		PageTitle: title,
		Session:   sess,
		Nav: []navItem{
			{Label: "Dashboard", Href: sess.Dashboard(), Active: active == sess.Dashboard()},
			{Label: "Profile", Href: RouteProfile, Active: active == RouteProfile},
		},
		CSRFField: csrf.TemplateField(r),
		Error:     r.URL.Query().Get("error"),
		Success:   r.URL.Query().Get("success"),
	}
}

// DashboardHandler renders the landing page of the signed in role
func (s *Server) DashboardHandler() SessionHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *session.Manager, sess session.Session) {
		data := s.newPageData(r, sess, "Dashboard", sess.Dashboard())
		s.renderTemplate(w, r, "dashboard.html", data)
	}
}

// renderTemplate executes one of the pages parsed at start up. Layout pages
// run through the layout, which pulls in their "content" block.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		logError(r.Method, r.URL.Path, "unknown template "+name)
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	entry := name
	if tmpl.Lookup(layoutTemplate) != nil {
		entry = layoutTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, entry, data); err != nil {
		log.Err(err).Str("template", name).Str("request_id", RequestID(r.Context())).Msg("failed to render template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
