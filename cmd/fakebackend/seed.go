package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Carlvinchi/ams/backend/backendfake"
	"github.com/Carlvinchi/ams/roles"
)

type seededUser struct {
	Role     string
	Email    string
	Password string
}

// seedUsers adds one user per role. Without a password each user gets a
// generated one, which is only ever shown in the start up log.
func seedUsers(fake *backendfake.Backend, baseURL, password string) ([]seededUser, error) {
	seeded := make([]seededUser, 0, len(roles.All()))
	for i, role := range roles.All() {
		pw := password
		if pw == "" {
			var err error
			if pw, err = generatePassword(); err != nil {
				return nil, err
			}
		}
		u := seededUser{
			Role:     role.String(),
			Email:    generateEmailFromBaseURL(role.String(), baseURL),
			Password: pw,
		}
		_, err := fake.AddUser(backendfake.NewUser{
			Email:     u.Email,
			Password:  u.Password,
			FirstName: strings.ToUpper(u.Role[:1]) + u.Role[1:],
			LastName:  "User",
			Phone:     fmt.Sprintf("055000000%d", i),
			Roles:     []string{u.Role},
		})
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.Role, err)
		}
		seeded = append(seeded, u)
	}
	return seeded, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateEmailFromBaseURL creates an email address from a username and base URL
// Example: ("coach", "http://localhost:8000/path") -> "coach@localhost"
func generateEmailFromBaseURL(user, baseURL string) string {
	domain := strings.ReplaceAll(strings.ReplaceAll(baseURL, "https://", ""), "http://", "")
	domain = strings.SplitN(domain, "/", 2)[0]
	domain = strings.SplitN(domain, ":", 2)[0]
	return fmt.Sprintf("%s@%s", user, domain)
}
