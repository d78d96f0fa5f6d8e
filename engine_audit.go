package contentauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/contentauth/session"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLogout                   = "logout"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventSessionRevoked           = "session_revoked"
	auditEventAuthenticateFailure      = "authenticate_failure"
)

// AuditErrorCode is the stable error label stored on audit events.
type AuditErrorCode string

const (
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrMalformedToken     AuditErrorCode = "malformed_token"
	auditErrInvalidSignature   AuditErrorCode = "invalid_signature"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	username string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Username:  username,
		TokenID:   tokenID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrMalformedToken):
		return auditErrMalformedToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrSessionStoreUnavailable),
		errors.Is(err, session.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

