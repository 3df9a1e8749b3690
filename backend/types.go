package backend

import "strings"

// TokenResponse is the body returned by POST /users/login and POST /users/refresh.
type TokenResponse struct {
	// AccessToken is the short-lived JWT sent as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is only present on login. The backend does not rotate it on refresh.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RoleRecord is one entry of the user's role list.
type RoleRecord struct {
	ID       int    `json:"id,omitempty"`
	RoleName string `json:"role_name"`
}

// User is the profile returned by GET /users/me. The password is never part of it.
type User struct {
	ID             int64        `json:"id"`
	Email          string       `json:"email"`
	FirstName      string       `json:"first_name,omitempty"`
	LastName       string       `json:"last_name,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	ProfilePicture *string      `json:"profile_picture,omitempty"`
	Roles          []RoleRecord `json:"roles"`
}

// PrimaryRole returns the first role the backend lists for the user. That role
// is authoritative; there is no merge or priority logic.
func (u User) PrimaryRole() (string, bool) {
	if len(u.Roles) == 0 || u.Roles[0].RoleName == "" {
		return "", false
	}
	return u.Roles[0].RoleName, true
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ProfileUpdate is the body of POST /users/update.
type ProfileUpdate struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PasswordUpdate is the body of POST /users/update/password.
type PasswordUpdate struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// MutationResponse wraps the user record returned by the update endpoints.
type MutationResponse struct {
	Status string `json:"status"`
	Data   *User  `json:"data,omitempty"`
}
