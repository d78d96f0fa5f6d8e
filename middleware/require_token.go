package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/contentauth"
)

// TokenHeader is the request header carrying the access token.
const TokenHeader = "token"

// Authenticator is the part of contentauth.Engine the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*contentauth.Identity, error)
}

type failureBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RequireToken rejects requests without a valid token and session. On success
// the identity is available through contentauth.IdentityFromContext.
func RequireToken(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteError(w, contentauth.ErrEngineNotReady)
				return
			}

			token := strings.TrimSpace(r.Header.Get(TokenHeader))
			if token == "" {
				WriteError(w, contentauth.ErrMissingToken)
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contentauth.WithIdentity(r.Context(), id)))
		})
	}
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, contentauth.ErrSessionStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, contentauth.ErrMissingToken),
		errors.Is(err, contentauth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, contentauth.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, contentauth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the `{"status":"fail","message":...}` body for err.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	_ = json.NewEncoder(w).Encode(failureBody{
		Status:  "fail",
		Message: contentauth.PublicMessage(err),
	})
}
