package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/forms"
	"github.com/Carlvinchi/ams/internal/utils"
	"github.com/Carlvinchi/ams/session"
	"github.com/rs/zerolog/log"
)

const (
	defaultAvatar = "/static/images/avatar.svg"

	msgUpdateFailed = "Failed to update"
	msgUploadFailed = "Failed to upload image"
	msgProfileSaved = "Profile updated"
	msgPictureSaved = "Profile picture updated"

	// sniffLen is how much of an upload http.DetectContentType looks at
	sniffLen = 512
)

// ProfileView is the Data of profile.html
type ProfileView struct {
	User       backend.User
	Role       string
	PictureURL string
}

// ProfilePageHandler renders the signed in user's profile, fetched from the backend
func (s *Server) ProfilePageHandler() SessionHandler {
	return func(w http.ResponseWriter, r *http.Request, m *session.Manager, sess session.Session) {
		ctx := r.Context()

		user, err := s.backend.Authorized(m.TokenSource(ctx)).Me(ctx)
		if err != nil {
			if handleBackendAuthError(w, r, err) {
				return
			}
			log.Err(err).Str("request_id", RequestID(ctx)).Msg("failed to load profile")
			data := s.newPageData(r, sess, "Profile", RouteProfile)
			data.Error = session.UserMessage(err)
			data.Data = ProfileView{User: backend.User{Email: sess.Email}, Role: sess.Role.String(), PictureURL: defaultAvatar}
			s.renderTemplate(w, r, "profile.html", data)
			return
		}

		data := s.newPageData(r, sess, "Profile", RouteProfile)
		data.Data = ProfileView{
			User:       *user,
			Role:       sess.Role.String(),
			PictureURL: s.pictureURL(user),
		}
		s.renderTemplate(w, r, "profile.html", data)
	}
}

// pictureURL resolves the backend relative picture path against the backend
// base URL, falling back to the bundled avatar.
func (s *Server) pictureURL(user *backend.User) string {
	pic := strings.TrimSpace(utils.Value(user.ProfilePicture))
	if pic == "" {
		return defaultAvatar
	}
	if strings.HasPrefix(pic, "http://") || strings.HasPrefix(pic, "https://") {
		return pic
	}
	return strings.TrimRight(s.backend.BaseURL(), "/") + "/" + strings.TrimLeft(pic, "/")
}

// ProfileUpdateHandler saves the contact details form
func (s *Server) ProfileUpdateHandler() SessionHandler {
	return func(w http.ResponseWriter, r *http.Request, m *session.Manager, _ session.Session) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteProfile, "Invalid form data")
			return
		}

		form := forms.Profile{
			Email:     strings.TrimSpace(r.PostFormValue("email")),
			Phone:     strings.TrimSpace(r.PostFormValue("phone")),
			FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
			LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		}
		if err := s.validator.ValidateProfile(form); err != nil {
			redirectWithError(w, r, RouteProfile, err.Error())
			return
		}

		ctx := r.Context()
		_, err := s.backend.Authorized(m.TokenSource(ctx)).UpdateProfile(ctx, backend.ProfileUpdate{
			Email:     form.Email,
			Phone:     form.Phone,
			FirstName: form.FirstName,
			LastName:  form.LastName,
		})
		if err != nil {
			if handleBackendAuthError(w, r, err) {
				return
			}
			log.Err(err).Str("request_id", RequestID(ctx)).Msg("profile update failed")
			redirectWithError(w, r, RouteProfile, msgUpdateFailed)
			return
		}

		redirectWithMessage(w, r, RouteProfile, msgProfileSaved)
	}
}

// PasswordChangeHandler changes the password and returns to the dashboard
func (s *Server) PasswordChangeHandler() SessionHandler {
	return func(w http.ResponseWriter, r *http.Request, m *session.Manager, sess session.Session) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteProfile, "Invalid form data")
			return
		}

		form := forms.PasswordChange{
			CurrentPassword: r.PostFormValue("current_password"),
			NewPassword:     r.PostFormValue("new_password"),
			ConfirmPassword: r.PostFormValue("confirm_password"),
		}
		if err := s.validator.ValidatePasswordChange(form); err != nil {
			redirectWithError(w, r, RouteProfile, err.Error())
			return
		}

		ctx := r.Context()
		_, err := s.backend.Authorized(m.TokenSource(ctx)).UpdatePassword(ctx, backend.PasswordUpdate{
			OldPassword: form.CurrentPassword,
			NewPassword: form.NewPassword,
		})
		if err != nil {
			// a wrong current password is a 401 from the backend but must not
			// end the session
			if backend.IsUnauthorized(err) || !handleBackendAuthError(w, r, err) {
				log.Info().Err(err).Str("request_id", RequestID(ctx)).Msg("password change failed")
				redirectWithError(w, r, RouteProfile, msgUpdateFailed)
			}
			return
		}

		redirectSuccess(w, r, sess.Dashboard())
	}
}

// ProfilePictureHandler streams an uploaded image to the backend
func (s *Server) ProfilePictureHandler() SessionHandler {
	return func(w http.ResponseWriter, r *http.Request, m *session.Manager, _ session.Session) {
		ctx := r.Context()

		file, header, err := r.FormFile(backend.UploadFieldName)
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.As(err, &maxErr):
				redirectWithError(w, r, RouteProfile, "Image is too large")
			case errors.Is(err, http.ErrMissingFile):
				redirectWithError(w, r, RouteProfile, "Please choose an image to upload")
			default:
				log.Info().Err(err).Str("request_id", RequestID(ctx)).Msg("unreadable upload")
				redirectWithError(w, r, RouteProfile, msgUploadFailed)
			}
			return
		}
		defer file.Close()

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(file, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			redirectWithError(w, r, RouteProfile, msgUploadFailed)
			return
		}
		head = head[:n]
		if n == 0 || !strings.HasPrefix(http.DetectContentType(head), "image/") {
			redirectWithError(w, r, RouteProfile, "Only image files can be uploaded")
			return
		}

		content := io.MultiReader(bytes.NewReader(head), file)
		err = s.backend.Authorized(m.TokenSource(ctx)).UploadProfilePicture(ctx, path.Base(header.Filename), content)
		if err != nil {
			if handleBackendAuthError(w, r, err) {
				return
			}
			log.Err(err).Str("request_id", RequestID(ctx)).Msg("profile picture upload failed")
			redirectWithError(w, r, RouteProfile, msgUploadFailed)
			return
		}

		redirectWithMessage(w, r, RouteProfile, msgPictureSaved)
	}
}
