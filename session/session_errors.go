package session

import (
	"errors"
	"fmt"

	"github.com/Carlvinchi/ams/backend"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	ErrRefreshAccessToken = errors.New(RefreshAccessTokenError)
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNetworkFailure     = errors.New("network failure")
)

// classify maps a backend error onto the session taxonomy. A response with a
// status code becomes onStatus; anything else is a network failure.
func classify(err error, onStatus error) error {
	if backend.StatusCode(err) != 0 {
		return fmt.Errorf("%w: %w", onStatus, err)
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

// UserMessage is the text shown to a user for a sign-in failure.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrProfileFetchFailed):
		return "Invalid email or password"
	case errors.Is(err, ErrNetworkFailure):
		return "An unexpected error occurred. Please try again - " + rootCause(err).Error()
	default:
		return "An unexpected error occurred. Please try again - " + err.Error()
	}
}

// rootCause follows the last wrapped error of every link.
func rootCause(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
}
