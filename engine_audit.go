package carnet

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventAccountLocked         = "account_locked"
	auditEventAccountUnlocked       = "account_unlocked"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventRefreshReplayRejected = "refresh_replay_rejected"
	auditEventLogout                = "logout"
)

// AuditErrorCode is the stable error label written to bitácora events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountBlocked     AuditErrorCode = "account_blocked"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit records one bitácora event. meta is evaluated only when a sink is
// configured.
func (e *Engine) emitAudit(ctx context.Context, kind string, ok bool, userID, email string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: kind,
		UserID:    userID,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   ok,
		Error:     string(auditErrorCode(err)),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	// the request context may be cancelled right after the response is written
	e.audit.Emit(context.WithoutCancel(ctx), ev)
}

// auditCodes is checked in order; the first sentinel that matches wins.
var auditCodes = []struct {
	code AuditErrorCode
	errs []error
}{
	{auditErrInvalidCredentials, []error{ErrInvalidCredentials}},
	{auditErrAccountBlocked, []error{ErrAccountBlocked}},
	{auditErrAccountInactive, []error{ErrAccountInactive}},
	{auditErrAccountLocked, []error{ErrAccountLocked}},
	{auditErrRateLimited, []error{ErrLoginRateLimited, ErrRefreshRateLimited}},
	{auditErrInvalidToken, []error{ErrRefreshInvalid, ErrTokenInvalid, ErrTokenRevoked}},
	{auditErrNotFound, []error{ErrNotFound}},
	{auditErrValidation, []error{ErrValidation}},
	{auditErrUnavailable, []error{ErrDownstreamUnavailable, ErrSessionStoreUnavailable}},
}

// auditErrorCode reduces err to a stable label so causes never reach the log.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, c := range auditCodes {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.code
			}
		}
	}
	return auditErrInternal
}
