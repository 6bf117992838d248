package app

import "errors"

// ValidationError marks input problems that are reported to the user at the
// boundary. The failing operation leaves stored state untouched.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrMissingFields ValidationError = "please fill in all fields"
	ErrBadPassword   ValidationError = "incorrect password"
	ErrShortPassword ValidationError = "password must be at least 8 characters"
	ErrEmailTaken    ValidationError = "an account with this email already exists"
	ErrTitleRequired ValidationError = "task title is required"
	ErrNameRequired  ValidationError = "project name is required"
	ErrBadStatus     ValidationError = "unknown status"
	ErrBadPriority   ValidationError = "unknown priority"
)

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
