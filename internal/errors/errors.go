package errors

import (
	"errors"
)

// Browser session errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionIDRequired = errors.New("session id is required")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
