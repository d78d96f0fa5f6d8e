package flows

import (
	"context"

	"github.com/MrEthical07/contentauth/jwt"
)

// RevokeDeps captures explicit session revocation dependencies.
type RevokeDeps struct {
	VerifyToken        VerifyTokenFunc
	RemoveSession      RemoveSessionFunc
	RemoveUserSessions func(ctx context.Context, userID string) (int, error)
}

// RevokeResult reports which session was targeted.
type RevokeResult struct {
	Details *jwt.TokenDetails
	Err     error
}

// RunRevoke deletes the session behind a still-verifiable token. The token
// itself stays signature-valid but no longer authenticates.
func RunRevoke(ctx context.Context, token string, deps RevokeDeps) RevokeResult {
	details, err := deps.VerifyToken(token)
	if err != nil {
		return RevokeResult{Err: err}
	}
	return RevokeResult{
		Details: details,
		Err:     deps.RemoveSession(ctx, details.TokenID),
	}
}

// RunRevokeAll deletes every session indexed under userID.
func RunRevokeAll(ctx context.Context, userID string, deps RevokeDeps) (int, error) {
	return deps.RemoveUserSessions(ctx, userID)
}
