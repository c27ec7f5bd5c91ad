package domain

import "errors"

// Login and registration.
var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// Token verification. The guard reports all three to callers as one
// rejection; the distinction is kept for logs and metrics.
var (
	ErrTokenMalformed    = errors.New("malformed token")
	ErrTokenSignature    = errors.New("invalid token signature")
	ErrTokenExpired      = errors.New("token expired")
	ErrMissingCredential = errors.New("missing credential")
)

var ErrForbidden = errors.New("access forbidden")

// Password change.
var (
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	ErrPasswordMismatch     = errors.New("new password and confirm password do not match")
)

// IsTokenError reports whether err came from token verification.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenSignature) ||
		errors.Is(err, ErrTokenExpired)
}

// TokenErrorReason returns a short label for metrics.
func TokenErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrMissingCredential):
		return "missing"
	case errors.Is(err, ErrAccountNotFound):
		return "unknown_subject"
	default:
		return "other"
	}
}
