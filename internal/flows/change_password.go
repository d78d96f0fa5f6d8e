package flows

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ChangePasswordMetrics carries metric IDs needed by the password change flow.
type ChangePasswordMetrics struct {
	Success    int
	InvalidOld int
	Failure    int
}

// ChangePasswordEvents carries audit event names.
type ChangePasswordEvents struct {
	Success    string
	InvalidOld string
	Failure    string
}

// ChangePasswordErrors carries host-level sentinel errors.
type ChangePasswordErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	Forbidden          error
	Internal           error
}

// ChangePasswordDeps captures password change dependencies.
type ChangePasswordDeps struct {
	GetUser            GetUserFunc
	VerifyPassword     VerifyPasswordFunc
	VerifyDummy        func(ctx context.Context, password string)
	HashPassword       HashPasswordFunc
	UpdatePasswordHash UpdateHashFunc
	IsMalformedHash    func(error) bool
	// Actor returns the authenticated caller's user id, or "" when the call
	// is not made on behalf of a token holder.
	Actor func(ctx context.Context) string

	Metrics   ChangePasswordMetrics
	Events    ChangePasswordEvents
	Errors    ChangePasswordErrors
	MetricInc func(int)
	EmitAudit EmitAuditFunc
	Log       zerolog.Logger
}

// RunChangePassword replaces username's hash after checking oldPassword.
// Existing sessions are left untouched.
func RunChangePassword(ctx context.Context, username, oldPassword, newPassword string, deps ChangePasswordDeps) error {
	if deps.GetUser == nil || deps.VerifyPassword == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	user, err := deps.GetUser(ctx, username)
	if err != nil {
		deps.Log.Error().Err(err).Msg("change password: user lookup failed")
		return failChange(ctx, "", username, errors.Join(deps.Errors.Internal, err), deps)
	}
	if actor := actorOf(ctx, deps); actor != "" && (user == nil || actor != user.UserID) {
		return failChange(ctx, actor, username, deps.Errors.Forbidden, deps)
	}
	if user == nil || user.Deleted {
		deps.VerifyDummy(ctx, oldPassword)
		return invalidOld(ctx, "", username, deps)
	}

	ok, err := deps.VerifyPassword(ctx, oldPassword, user.PasswordHash)
	if err != nil {
		if deps.IsMalformedHash != nil && deps.IsMalformedHash(err) {
			deps.Log.Warn().Str("user_id", user.UserID).Msg("change password: stored password hash is malformed")
			return invalidOld(ctx, user.UserID, username, deps)
		}
		return failChange(ctx, user.UserID, username, errors.Join(deps.Errors.Internal, err), deps)
	}
	if !ok {
		return invalidOld(ctx, user.UserID, username, deps)
	}

	hash, err := deps.HashPassword(ctx, newPassword)
	if err != nil {
		deps.Log.Error().Err(err).Str("user_id", user.UserID).Msg("change password: hashing failed")
		return failChange(ctx, user.UserID, username, errors.Join(deps.Errors.Internal, err), deps)
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		deps.Log.Error().Err(err).Str("user_id", user.UserID).Msg("change password: update failed")
		return failChange(ctx, user.UserID, username, errors.Join(deps.Errors.Internal, err), deps)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.UserID, username, "", nil, nil)
	return nil
}

func actorOf(ctx context.Context, deps ChangePasswordDeps) string {
	if deps.Actor == nil {
		return ""
	}
	return deps.Actor(ctx)
}

func invalidOld(ctx context.Context, userID, username string, deps ChangePasswordDeps) error {
	deps.MetricInc(deps.Metrics.InvalidOld)
	deps.EmitAudit(ctx, deps.Events.InvalidOld, false, userID, username, "", deps.Errors.InvalidCredentials, nil)
	return deps.Errors.InvalidCredentials
}

func failChange(ctx context.Context, userID, username string, err error, deps ChangePasswordDeps) error {
	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, deps.Events.Failure, false, userID, username, "", err, nil)
	return err
}
