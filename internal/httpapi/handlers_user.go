package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/middleware"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeFailure(w, r, "login", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		a.writeFailure(w, r, "login", errBadRequest)
		return
	}

	res, err := a.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeFailure(w, r, "login", err)
		return
	}

	http.SetCookie(w, a.tokenCookie(res.AccessToken, res.ExpiresAt))
	writeJSON(w, http.StatusOK, loginResponse{
		Status:      "success",
		Nickname:    res.Profile.Nickname,
		Avatar:      res.Profile.Avatar,
		AccessToken: res.AccessToken,
	})
}

// handleLogout always succeeds. The session record is left to expire.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = a.svc.Logout(r.Context(), requestToken(r))

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(middleware.TokenHeader, "")
	writeJSON(w, http.StatusOK, statusMessage{Status: "success"})
}

func (a *API) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req updatePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeFailure(w, r, "update_pwd", err)
		return
	}
	if username == "" || req.OldPassword == "" || req.NewPassword == "" {
		a.writeFailure(w, r, "update_pwd", errBadRequest)
		return
	}

	// The identity placed in the context by RequireToken makes the engine
	// reject changes to another user's password.
	if err := a.svc.ChangePassword(r.Context(), username, req.OldPassword, req.NewPassword); err != nil {
		a.writeFailure(w, r, "update_pwd", err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusMessage{Status: "success"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := contentauth.IdentityFromContext(r.Context())
	if !ok {
		a.writeFailure(w, r, "me", contentauth.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Status:    "success",
		UserID:    id.UserID,
		TokenID:   id.TokenID,
		ExpiresAt: id.ExpiresAt.Unix(),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Ping(r.Context()); err != nil {
		a.log.Warn().Err(err).Msg("readiness: session store")
		writeJSON(w, http.StatusServiceUnavailable, statusMessage{Status: "fail", Message: "session store unavailable"})
		return
	}
	for _, check := range a.opts.ReadyChecks {
		if err := check(r.Context()); err != nil {
			a.log.Warn().Err(err).Msg("readiness: dependency")
			writeJSON(w, http.StatusServiceUnavailable, statusMessage{Status: "fail", Message: "dependency unavailable"})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *API) tokenCookie(token string, expires time.Time) *http.Cookie {
	maxAge := int(expires.Sub(a.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// requestToken prefers the header and falls back to the cookie.
func requestToken(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get(middleware.TokenHeader)); tok != "" {
		return tok
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func requestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}
