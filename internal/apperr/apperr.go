// Package apperr defines the sentinel errors shared across service layers.
// Services wrap these with goerr to attach context; the HTTP and WebSocket
// layers map them to response codes with errors.Is.
package apperr

import "errors"

var (
	// Not-found errors.
	ErrUserNotFound      = errors.New("user not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrChatNotFound      = errors.New("chat not found")
	ErrMemoryNotFound    = errors.New("memory not found")
	ErrNoSubscription    = errors.New("no active subscription found")

	// Authorization errors.
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrPremiumRequired    = errors.New("premium subscription required")

	// Policy errors.
	ErrMessageLimit     = errors.New("message limit reached")
	ErrContentViolation = errors.New("message contains inappropriate content")

	// Validation errors.
	ErrValidation = errors.New("invalid request")
)

// Code returns the stable machine-readable code for an error, or "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCharacterNotFound),
		errors.Is(err, ErrChatNotFound),
		errors.Is(err, ErrMemoryNotFound),
		errors.Is(err, ErrNoSubscription):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return "unauthorized"
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrPremiumRequired):
		return "forbidden"
	case errors.Is(err, ErrEmailTaken):
		return "conflict"
	case errors.Is(err, ErrMessageLimit):
		return "limit_exceeded"
	case errors.Is(err, ErrContentViolation):
		return "content_violation"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
