package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/contentauth/middleware"
)

var errBadRequest = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeFailure logs server-side causes and sends the public message.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, errBadRequest) {
		writeJSON(w, http.StatusBadRequest, statusMessage{Status: "fail", Message: "Invalid request body"})
		return
	}
	if status := middleware.StatusFor(err); status >= http.StatusInternalServerError {
		a.log.Error().Err(err).Str("op", op).Str("request_id", requestID(r)).Msg("request failed")
	}
	middleware.WriteError(w, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// Unknown members are ignored; clients send whole profile objects.
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status      string `json:"status"`
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar"`
	AccessToken string `json:"access_token"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type meResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id"`
	ExpiresAt int64  `json:"expires_at"`
}
