package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyToken VerifyTokenFunc
}

// LogoutResult names the token being discarded, when it could be read.
type LogoutResult struct {
	UserID  string
	TokenID string
}

// RunLogout never touches the session store: the client drops its token and
// the session record lapses with its TTL. The token, if present and valid, is
// only read so the caller can attribute the event.
func RunLogout(_ context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" || deps.VerifyToken == nil {
		return LogoutResult{}
	}
	details, err := deps.VerifyToken(token)
	if err != nil {
		return LogoutResult{}
	}
	return LogoutResult{UserID: details.UserID, TokenID: details.TokenID}
}
