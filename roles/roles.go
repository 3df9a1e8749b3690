// Package roles maps AMS user roles to their dashboards and decides which
// roles may view a protected page.
package roles

// Role is one of the fixed roles the AMS backend assigns to a user.
type Role string

const (
	Admin   Role = "admin"
	Coach   Role = "coach"
	Athlete Role = "athlete"
)

// SignInPath is where anyone without a usable session is sent.
const SignInPath = "/login"

// dashboards is the single role to landing page table. Navigation, the route
// guard and the post-login redirect all read it through DashboardFor.
var dashboards = map[Role]string{
	Admin:   "/admin/",
	Coach:   "/coach/",
	Athlete: "/athlete/",
}

// All returns the known roles in a stable order.
func All() []Role {
	return []Role{Admin, Coach, Athlete}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := dashboards[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// DashboardFor returns the landing page for role. Unknown or empty roles map
// to the sign-in page, never to an authenticated view.
func DashboardFor(role Role) string {
	if path, ok := dashboards[role]; ok {
		return path
	}
	return SignInPath
}

// CanAccess reports whether role may view a page restricted to allowed. An
// empty allowed list marks an open view.
func CanAccess(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
