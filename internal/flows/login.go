package flows

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccessToken string
	TokenID     string
	UserID      string
	ExpiresAt   time.Time
	Nickname    string
	Avatar      string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess   int
	LoginFailure   int
	SessionCreated int
	Rehashed       int
	StoreDown      int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	StoreUnavailable   error
	Internal           error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	TokenTTL       time.Duration
	UpgradeOnLogin bool

	GetUser            GetUserFunc
	UpdatePasswordHash UpdateHashFunc
	VerifyPassword     VerifyPasswordFunc
	VerifyDummy        func(ctx context.Context, password string)
	NeedsUpgrade       func(encodedHash string) (bool, error)
	HashPassword       HashPasswordFunc
	IsMalformedHash    func(error) bool

	IssueToken         IssueTokenFunc
	PutSession         PutSessionFunc
	IsStoreUnavailable func(error) bool

	Metrics   LoginMetrics
	Events    LoginEvents
	Errors    LoginErrors
	MetricInc func(int)
	EmitAudit EmitAuditFunc
	Log       zerolog.Logger
}

// RunLogin checks username/password, issues an access token and records its
// session. Unknown users, deleted users and wrong passwords all return
// Errors.InvalidCredentials after the same amount of hashing work.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.GetUser == nil || deps.VerifyPassword == nil || deps.IssueToken == nil || deps.PutSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(userID, reason string, err error) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, username, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, err
	}

	user, err := deps.GetUser(ctx, username)
	if err != nil {
		deps.Log.Error().Err(err).Msg("login: user lookup failed")
		return fail("", "user_store_error", errors.Join(deps.Errors.Internal, err))
	}
	if user == nil || user.Deleted {
		deps.VerifyDummy(ctx, password)
		return fail("", "unknown_user", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifyPassword(ctx, password, user.PasswordHash)
	if err != nil {
		if deps.IsMalformedHash != nil && deps.IsMalformedHash(err) {
			deps.Log.Warn().Str("user_id", user.UserID).Msg("login: stored password hash is malformed")
			return fail(user.UserID, "malformed_hash", deps.Errors.InvalidCredentials)
		}
		return fail(user.UserID, "hash_error", errors.Join(deps.Errors.Internal, err))
	}
	if !ok {
		return fail(user.UserID, "wrong_password", deps.Errors.InvalidCredentials)
	}

	details, err := deps.IssueToken(user.UserID, deps.TokenTTL)
	if err != nil {
		deps.Log.Error().Err(err).Str("user_id", user.UserID).Msg("login: token issuance failed")
		return fail(user.UserID, "token_issue_failed", errors.Join(deps.Errors.Internal, err))
	}

	if err := deps.PutSession(ctx, details.TokenID, user.UserID, details.ExpiresAt.Sub(details.IssuedAt)); err != nil {
		if deps.IsStoreUnavailable != nil && deps.IsStoreUnavailable(err) {
			deps.MetricInc(deps.Metrics.StoreDown)
			deps.Log.Error().Err(err).Str("user_id", user.UserID).Msg("login: session store unavailable")
			return fail(user.UserID, "session_store_unavailable", errors.Join(deps.Errors.StoreUnavailable, err))
		}
		deps.Log.Error().Err(err).Str("user_id", user.UserID).Msg("login: session write failed")
		return fail(user.UserID, "session_write_failed", errors.Join(deps.Errors.Internal, err))
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	if deps.UpgradeOnLogin {
		upgradePasswordHash(ctx, user, password, deps)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, username, details.TokenID, nil, nil)

	return &LoginResult{
		AccessToken: details.Token,
		TokenID:     details.TokenID,
		UserID:      user.UserID,
		ExpiresAt:   details.ExpiresAt,
		Nickname:    user.Nickname,
		Avatar:      user.Avatar,
	}, nil
}

// upgradePasswordHash rehashes with the current parameters. Failures are
// logged and never fail the login.
func upgradePasswordHash(ctx context.Context, user *UserRecord, password string, deps LoginDeps) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}

	needs, err := deps.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := deps.HashPassword(ctx, password)
	if err != nil {
		deps.Log.Warn().Err(err).Str("user_id", user.UserID).Msg("login: password rehash failed")
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		deps.Log.Warn().Err(err).Str("user_id", user.UserID).Msg("login: storing upgraded hash failed")
		return
	}
	deps.MetricInc(deps.Metrics.Rehashed)
}
