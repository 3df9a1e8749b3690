package forms_test

import (
	"testing"

	"github.com/Carlvinchi/ams/forms"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateLogin(t *testing.T) {
	v := forms.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateLogin(forms.Login{Email: "a@x.com", Password: "longenough"}))
	})

	t.Run("missing email", func(t *testing.T) {
		err := v.ValidateLogin(forms.Login{Password: "longenough"})
		require.EqualError(t, err, "Email is required")
	})

	t.Run("malformed email", func(t *testing.T) {
		for _, email := range []string{"not-an-email", "a@x", "Ama <a@x.com>", "@x.com"} {
			err := v.ValidateLogin(forms.Login{Email: email, Password: "longenough"})
			require.EqualError(t, err, "Invalid email address", email)
		}
	})

	t.Run("short password", func(t *testing.T) {
		err := v.ValidateLogin(forms.Login{Email: "a@x.com", Password: "short"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("password length counts characters", func(t *testing.T) {
		// 5 characters, 10 bytes
		err := v.ValidateLogin(forms.Login{Email: "a@x.com", Password: "ééééé"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least 8 characters")

		require.NoError(t, v.ValidateLogin(forms.Login{Email: "a@x.com", Password: "пароль12"}))
	})
}

func TestValidator_ValidateProfile(t *testing.T) {
	v := forms.NewValidator()
	valid := forms.Profile{Email: "a@x.com", Phone: "0241234567", FirstName: "Ama", LastName: "Mensah"}

	require.NoError(t, v.ValidateProfile(valid))

	t.Run("short phone", func(t *testing.T) {
		f := valid
		f.Phone = "024123"
		require.Contains(t, v.ValidateProfile(f).Error(), "Phone number")
	})

	t.Run("blank names", func(t *testing.T) {
		f := valid
		f.FirstName = "  "
		require.EqualError(t, v.ValidateProfile(f), "First name is required")

		f = valid
		f.LastName = ""
		require.EqualError(t, v.ValidateProfile(f), "Last name is required")
	})

	t.Run("bad email", func(t *testing.T) {
		f := valid
		f.Email = "nope"
		require.EqualError(t, v.ValidateProfile(f), "Invalid email address")
	})
}

func TestValidator_ValidatePasswordChange(t *testing.T) {
	v := forms.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidatePasswordChange(forms.PasswordChange{
			CurrentPassword: "oldpassword", NewPassword: "newpassword", ConfirmPassword: "newpassword",
		}))
	})

	t.Run("mismatch", func(t *testing.T) {
		err := v.ValidatePasswordChange(forms.PasswordChange{
			CurrentPassword: "oldpassword", NewPassword: "newpassword", ConfirmPassword: "newpassw0rd",
		})
		require.EqualError(t, err, "Passwords do not match")
	})

	t.Run("short field", func(t *testing.T) {
		err := v.ValidatePasswordChange(forms.PasswordChange{
			CurrentPassword: "old", NewPassword: "newpassword", ConfirmPassword: "newpassword",
		})
		require.EqualError(t, err, "Current password must be at least 8 characters")
	})

	t.Run("multibyte password too short", func(t *testing.T) {
		err := v.ValidatePasswordChange(forms.PasswordChange{
			CurrentPassword: "oldpassword", NewPassword: "ééééé", ConfirmPassword: "ééééé",
		})
		require.EqualError(t, err, "New password must be at least 8 characters")
	})
}
