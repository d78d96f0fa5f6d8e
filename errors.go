package contentauth

import (
	"errors"

	"github.com/MrEthical07/contentauth/jwt"
)

var (
	// ErrMissingToken is returned when no credential accompanies a protected call.
	ErrMissingToken = errors.New("token is empty")
	// ErrUnauthorized is the umbrella for every token or session rejection.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedToken is joined with ErrUnauthorized for undecodable tokens.
	ErrMalformedToken = jwt.ErrMalformed
	// ErrInvalidSignature is joined with ErrUnauthorized for bad signatures.
	ErrInvalidSignature = jwt.ErrInvalidSignature
	// ErrTokenExpired is joined with ErrUnauthorized once exp has passed.
	ErrTokenExpired = jwt.ErrExpired
	// ErrSessionNotFound is joined with ErrUnauthorized when a signature-valid
	// token has no live session record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionStoreUnavailable means the session backend could not answer.
	// It is a server fault, not an authentication failure.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	// The two causes are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden means the caller is authenticated but may not act on the target.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal wraps unexpected failures whose cause is only logged.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrUserNotFound is returned by UserStore implementations.
	ErrUserNotFound = errors.New("user not found")
)

// PublicMessage maps err to the stable client-facing text for it. Causes are
// never included.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return "Token is empty"
	case errors.Is(err, ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, ErrInvalidSignature):
		return "Token signature is invalid"
	case errors.Is(err, ErrMalformedToken):
		return "Token is malformed"
	case errors.Is(err, ErrSessionNotFound):
		return "Token is invalid or session has expired"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid password"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrSessionStoreUnavailable):
		return "Service temporarily unavailable"
	default:
		return "Internal server error"
	}
}
