package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/contentauth/jwt"
)

// AuthenticateFailureKind classifies authentication failures for root-level
// mapping.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureMissingToken
	AuthenticateFailureToken
	AuthenticateFailureSessionNotFound
	AuthenticateFailureStoreUnavailable
)

// AuthenticateResult returns either the verified token or a classified
// failure. Err carries the underlying cause.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error
	Details *jwt.TokenDetails
	Elapsed time.Duration
}

// AuthenticateDeps captures token and session checks.
type AuthenticateDeps struct {
	VerifyToken        VerifyTokenFunc
	GetSession         GetSessionFunc
	IsStoreUnavailable func(error) bool
	Now                func() time.Time
}

// RunAuthenticate verifies the token, then requires a live session record
// owned by the token's subject. Store outages are reported separately from
// missing sessions.
func RunAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) AuthenticateResult {
	start := deps.Now()
	result := runAuthenticate(ctx, token, deps)
	result.Elapsed = deps.Now().Sub(start)
	return result
}

func runAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) AuthenticateResult {
	if token == "" {
		return AuthenticateResult{Failure: AuthenticateFailureMissingToken}
	}

	details, err := deps.VerifyToken(token)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureToken, Err: err}
	}

	userID, found, err := deps.GetSession(ctx, details.TokenID)
	if err != nil {
		if deps.IsStoreUnavailable(err) {
			return AuthenticateResult{Failure: AuthenticateFailureStoreUnavailable, Err: err}
		}
		// Corrupt records count as revoked.
		return AuthenticateResult{Failure: AuthenticateFailureSessionNotFound, Err: err}
	}
	if !found || userID != details.UserID {
		return AuthenticateResult{Failure: AuthenticateFailureSessionNotFound}
	}

	return AuthenticateResult{Details: details}
}
