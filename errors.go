package authgate

import (
	"errors"
	"net/http"
)

// Sentinel errors for the expected negative outcomes of authentication.
// These are rejections, not failures: handlers turn them into redirects or
// re-rendered forms. Anything else bubbling out of a verifier, resolver or
// store is an internal error and is reported generically to the client.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrBadPassword      = errors.New("invalid credentials")
	ErrNoEmailInProfile = errors.New("provider profile has no usable email")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// IsRejection reports whether err is an expected negative outcome (bad
// credentials, unknown account, taken email) as opposed to an internal
// failure such as an unreachable store.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrBadPassword) ||
		errors.Is(err, ErrNoEmailInProfile)
}

// Error codes attached to AuthError for client-side handling
const (
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeEmailTaken   = "email_taken"
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidEmail = "invalid_email"
	ErrCodeWeakPassword = "weak_password"
	ErrCodeInternal     = "internal_error"
)

// AuthError is a user-facing authentication error with a stable code and
// the form field it concerns (if any)
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string { return e.Message }

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler lets applications take over error rendering (e.g. to
// redirect back to a form with a flag). Returning false falls through to
// the default JSON response.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool
