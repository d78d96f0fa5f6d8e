package contentauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/contentauth/internal/audit"
	"github.com/MrEthical07/contentauth/internal/flows"
	"github.com/MrEthical07/contentauth/jwt"
	"github.com/MrEthical07/contentauth/password"
	"github.com/MrEthical07/contentauth/session"
	"github.com/rs/zerolog"
)

// Engine is the authentication service. It is immutable after Build and safe
// for concurrent use; request goroutines share only the parsed keys, the
// Redis client and the hashing pool.
type Engine struct {
	config    Config
	issuer    *jwt.Issuer
	verifier  *jwt.Verifier
	sessions  *session.Store
	passwords *password.Pool
	users     UserStore
	audit     *audit.Dispatcher
	metrics   *Metrics
	flows     flows.Service
	log       zerolog.Logger
	now       func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	_ = e.Shutdown(context.Background())
}

// Shutdown flushes pending audit events until ctx ends.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.audit.Shutdown(ctx)
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters and histograms.
// A nil engine yields empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL is the configured access token lifetime.
func (e *Engine) TokenTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Token.TTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies username and password and opens a session. Unknown users and
// wrong passwords both yield ErrInvalidCredentials. A session backend outage
// yields ErrSessionStoreUnavailable.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flows.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: res.AccessToken,
		TokenID:     res.TokenID,
		UserID:      res.UserID,
		ExpiresAt:   res.ExpiresAt,
		Profile: Profile{
			Nickname: res.Nickname,
			Avatar:   res.Avatar,
		},
	}, nil
}

// Authenticate resolves token to an identity. The token must verify and its
// session record must still exist.
//
// Failures wrap ErrMissingToken, or ErrUnauthorized joined with one of
// ErrMalformedToken, ErrInvalidSignature, ErrTokenExpired or
// ErrSessionNotFound. A backend outage wraps ErrSessionStoreUnavailable and is
// never reported as ErrUnauthorized.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Authenticate(ctx, token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, res.Elapsed)
	}

	var err error
	switch res.Failure {
	case flows.AuthenticateFailureNone:
		e.metricInc(MetricAuthenticateSuccess)
		return &Identity{
			UserID:    res.Details.UserID,
			TokenID:   res.Details.TokenID,
			IssuedAt:  res.Details.IssuedAt,
			ExpiresAt: res.Details.ExpiresAt,
		}, nil
	case flows.AuthenticateFailureMissingToken:
		err = ErrMissingToken
	case flows.AuthenticateFailureToken:
		err = errors.Join(ErrUnauthorized, res.Err)
	case flows.AuthenticateFailureSessionNotFound:
		if res.Err != nil {
			e.log.Warn().Err(res.Err).Msg("authenticate: unreadable session record")
		}
		err = errors.Join(ErrUnauthorized, ErrSessionNotFound)
	case flows.AuthenticateFailureStoreUnavailable:
		e.metricInc(MetricSessionStoreUnavailable)
		e.log.Error().Err(res.Err).Msg("authenticate: session store unavailable")
		err = errors.Join(ErrSessionStoreUnavailable, res.Err)
	default:
		err = ErrInternal
	}

	e.metricInc(MetricAuthenticateFailure)
	var userID, tokenID string
	if res.Details != nil {
		userID, tokenID = res.Details.UserID, res.Details.TokenID
	}
	e.emitAudit(ctx, auditEventAuthenticateFailure, false, userID, "", tokenID, err, nil)

	return nil, err
}

// Logout is client-side only: the caller discards the token and the session
// record lapses with its TTL. It never fails and never touches the session
// store. Use Revoke to invalidate a token server-side.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || !e.flows.Initialized() {
		return nil
	}

	res := e.flows.Logout(ctx, token)
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.UserID, "", res.TokenID, nil, nil)
	return nil
}

// ChangePassword replaces the password of username after checking
// oldPassword. Sessions opened before the change stay valid until they
// expire. When ctx carries an Identity (see WithIdentity) it must belong to
// username, otherwise ErrForbidden is returned.
func (e *Engine) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return e.flows.ChangePassword(ctx, username, oldPassword, newPassword)
}

// Revoke deletes the session behind token. The token must still verify;
// revoking an already-absent session succeeds.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrMissingToken
	}

	res := e.flows.Revoke(ctx, token)
	if res.Details == nil {
		return errors.Join(ErrUnauthorized, res.Err)
	}
	if res.Err != nil {
		return e.mapStoreError("revoke", res.Err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, res.Details.UserID, "", res.Details.TokenID, nil, nil)
	return nil
}

// RevokeAll deletes every session of userID and reports how many were live.
func (e *Engine) RevokeAll(ctx context.Context, userID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}

	n, err := e.flows.RevokeAll(ctx, userID)
	if err != nil {
		return 0, e.mapStoreError("revoke all", err)
	}
	for i := 0; i < n; i++ {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionRevoked, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{"scope": "all"}
	})
	return n, nil
}

// Ping checks the session backend. It backs the readiness probe.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if _, err := e.sessions.Ping(ctx); err != nil {
		return e.mapStoreError("ping", err)
	}
	return nil
}

func (e *Engine) mapStoreError(op string, err error) error {
	if isStoreUnavailable(err) {
		e.metricInc(MetricSessionStoreUnavailable)
		e.log.Error().Err(err).Str("op", op).Msg("session store unavailable")
		return errors.Join(ErrSessionStoreUnavailable, err)
	}
	e.log.Error().Err(err).Str("op", op).Msg("session store error")
	return errors.Join(ErrInternal, err)
}

func isStoreUnavailable(err error) bool {
	return errors.Is(err, session.ErrUnavailable)
}
