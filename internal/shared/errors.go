package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
)

// UserSafeMessage maps internal errors to messages safe to show end users.
// Authorization failures deliberately share one message so callers cannot
// probe which role or relation would have granted access.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Email or password is incorrect."
	case errors.Is(err, ErrDuplicate):
		return "A record with those details already exists."
	default:
		return "Something went wrong. Please try again."
	}
}
