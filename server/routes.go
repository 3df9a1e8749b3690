package server

import (
	"net/http"

	"github.com/Carlvinchi/ams/roles"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.FormMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Dashboards
	s.RegisterRouteHandler("GET "+RouteAdminDashboard+"{$}", ChainMiddleware(s.RequireRoles(s.DashboardHandler(), roles.Admin), s.FormMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCoachDashboard+"{$}", ChainMiddleware(s.RequireRoles(s.DashboardHandler(), roles.Coach), s.FormMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAthleteDashboard+"{$}", ChainMiddleware(s.RequireRoles(s.DashboardHandler(), roles.Athlete), s.FormMiddleware()...))

	// Profile, open to every signed in role
	s.RegisterRouteHandler("GET "+RouteProfile+"{$}", ChainMiddleware(s.RequireRoles(s.ProfilePageHandler()), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteProfileUpdate, ChainMiddleware(s.RequireRoles(s.ProfileUpdateHandler()), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteProfilePassword, ChainMiddleware(s.RequireRoles(s.PasswordChangeHandler()), s.FormMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteProfilePicture, ChainMiddleware(s.RequireRoles(s.ProfilePictureHandler()), s.UploadMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	files := http.StripPrefix(RouteStatic[:len(RouteStatic)-1], s.fileServer)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RouteStatic {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		files.ServeHTTP(w, r)
	}
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}
