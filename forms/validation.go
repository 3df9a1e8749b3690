// Package forms validates the dashboard's HTML form submissions before
// anything is sent to the AMS backend.
package forms

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MinPhoneLength    = 10
)

// Login is the sign-in form.
type Login struct {
	Email    string
	Password string
}

// Profile is the contact details form.
type Profile struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// PasswordChange is the change password form.
type PasswordChange struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// Validator holds the form rules. The first failing rule is reported.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogin checks the sign-in form
func (v *Validator) ValidateLogin(f Login) error {
	if err := v.ValidateEmail(f.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(f.Password) < MinPasswordLength {
		return fmt.Errorf("Password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateProfile checks the contact details form
func (v *Validator) ValidateProfile(f Profile) error {
	if err := v.ValidateEmail(f.Email); err != nil {
		return err
	}
	if strings.TrimSpace(f.FirstName) == "" {
		return fmt.Errorf("First name is required")
	}
	if strings.TrimSpace(f.LastName) == "" {
		return fmt.Errorf("Last name is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Phone)) < MinPhoneLength {
		return fmt.Errorf("Phone number must be at least %d characters", MinPhoneLength)
	}
	return nil
}

// ValidatePasswordChange checks the change password form
func (v *Validator) ValidatePasswordChange(f PasswordChange) error {
	fields := []struct {
		label string
		value string
	}{
		{"Current password", f.CurrentPassword},
		{"New password", f.NewPassword},
		{"Confirm password", f.ConfirmPassword},
	}
	for _, field := range fields {
		if utf8.RuneCountInString(field.value) < MinPasswordLength {
			return fmt.Errorf("%s must be at least %d characters", field.label, MinPasswordLength)
		}
	}
	if f.NewPassword != f.ConfirmPassword {
		return fmt.Errorf("Passwords do not match")
	}
	return nil
}

// ValidateEmail accepts a bare address only; display names are rejected.
func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return fmt.Errorf("Invalid email address")
	}
	return nil
}
