package contentauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/contentauth/internal/flows"
	"github.com/MrEthical07/contentauth/password"
)

func (e *Engine) buildFlows() flows.Service {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	isMalformedHash := func(err error) bool { return errors.Is(err, password.ErrMalformedHash) }

	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			TokenTTL:           e.config.Token.TTL,
			UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
			GetUser:            e.lookupUser,
			UpdatePasswordHash: e.users.UpdatePasswordHash,
			VerifyPassword:     e.passwords.Verify,
			VerifyDummy:        e.passwords.VerifyDummy,
			NeedsUpgrade:       e.passwords.NeedsUpgrade,
			HashPassword:       e.passwords.Hash,
			IsMalformedHash:    isMalformedHash,
			IssueToken:         e.issuer.Generate,
			PutSession:         e.sessions.Put,
			IsStoreUnavailable: isStoreUnavailable,
			Metrics: flows.LoginMetrics{
				LoginSuccess:   int(MetricLoginSuccess),
				LoginFailure:   int(MetricLoginFailure),
				SessionCreated: int(MetricSessionCreated),
				Rehashed:       int(MetricPasswordRehashed),
				StoreDown:      int(MetricSessionStoreUnavailable),
			},
			Events: flows.LoginEvents{
				LoginSuccess: auditEventLoginSuccess,
				LoginFailure: auditEventLoginFailure,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				StoreUnavailable:   ErrSessionStoreUnavailable,
				Internal:           ErrInternal,
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Log:       e.log,
		},
		Authenticate: flows.AuthenticateDeps{
			VerifyToken:        e.verifier.Verify,
			GetSession:         e.sessions.Get,
			IsStoreUnavailable: isStoreUnavailable,
			Now:                e.now,
		},
		Logout: flows.LogoutDeps{
			VerifyToken: e.verifier.Verify,
		},
		ChangePassword: flows.ChangePasswordDeps{
			GetUser:            e.lookupUser,
			VerifyPassword:     e.passwords.Verify,
			VerifyDummy:        e.passwords.VerifyDummy,
			HashPassword:       e.passwords.Hash,
			UpdatePasswordHash: e.users.UpdatePasswordHash,
			IsMalformedHash:    isMalformedHash,
			Actor:              actorUserID,
			Metrics: flows.ChangePasswordMetrics{
				Success:    int(MetricPasswordChangeSuccess),
				InvalidOld: int(MetricPasswordChangeInvalidOld),
				Failure:    int(MetricPasswordChangeFailure),
			},
			Events: flows.ChangePasswordEvents{
				Success:    auditEventPasswordChangeSuccess,
				InvalidOld: auditEventPasswordChangeInvalidOld,
				Failure:    auditEventPasswordChangeFailure,
			},
			Errors: flows.ChangePasswordErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				Forbidden:          ErrForbidden,
				Internal:           ErrInternal,
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Log:       e.log,
		},
		Revoke: flows.RevokeDeps{
			VerifyToken:        e.verifier.Verify,
			RemoveSession:      e.sessions.Remove,
			RemoveUserSessions: e.sessions.RemoveUser,
		},
	})
}

// lookupUser adapts the UserStore to the flow-local record. ErrUserNotFound
// becomes a nil record.
func (e *Engine) lookupUser(ctx context.Context, username string) (*flows.UserRecord, error) {
	u, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	return &flows.UserRecord{
		UserID:       u.ID,
		Username:     u.Username,
		Nickname:     u.Nickname,
		Avatar:       u.Avatar,
		PasswordHash: u.PasswordHash,
		Deleted:      u.IsDeleted,
	}, nil
}

func actorUserID(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return ""
}
