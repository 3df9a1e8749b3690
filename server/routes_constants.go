package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Dashboards, one per role
	RouteAdminDashboard   = "/admin/"
	RouteCoachDashboard   = "/coach/"
	RouteAthleteDashboard = "/athlete/"

	// Profile Routes
	RouteProfile         = "/profile/"
	RouteProfileUpdate   = "/profile/update"
	RouteProfilePassword = "/profile/password"
	RouteProfilePicture  = "/profile/picture"

	// API Routes
	RouteAPISession = "/api/auth/session"

	// Static Asset Routes
	RouteStatic = "/static/"
)
