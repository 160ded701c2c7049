package carnet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
	"github.com/carnet-digital/carnet/password"
	"github.com/sirupsen/logrus"
)

// Login authenticates req and returns a fresh token pair.
//
// Every credential failure (unknown email, wrong password, wrong user type)
// returns [ErrInvalidCredentials]. Blocked and inactive accounts do too unless
// Security.RevealAccountState is set, in which case [ErrAccountBlocked],
// [ErrAccountInactive] or [ErrAccountLocked] is returned. Collaborator and
// Redis faults wrap [ErrDownstreamUnavailable] or [ErrSessionStoreUnavailable].
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.users == nil || e.catalog == nil {
		return nil, ErrEngineNotReady
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.UserType) == "" {
		return nil, fmt.Errorf("%w: email, password and user type are required", ErrValidation)
	}
	if !e.emailDomainAllowed(email) {
		return nil, fmt.Errorf("%w: email domain not allowed", ErrValidation)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := internalflows.RunLogin(ctx, email, req.Password, req.UserType, e.loginFlowDeps())
	if res.Failure == internalflows.LoginFailureNone {
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, email, nil, func() map[string]string {
			return map[string]string{"user_type": res.UserType}
		})
		return e.toTokenPair(res.UserID, res.UserType, res.Tokens), nil
	}

	err := e.loginError(res)
	log := e.logger.WithFields(logrus.Fields{
		"email":   email,
		"user_id": res.UserID,
		"reason":  loginReason(res.Failure),
	})
	if res.Err != nil {
		log = log.WithError(res.Err)
	}

	switch res.Failure {
	case internalflows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		log.Warn("login throttled")
	case internalflows.LoginFailureLocked:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricAccountLocked)
		log.WithField("failed_attempts", res.FailedAttempts).Warn("account locked")
		e.emitAudit(ctx, auditEventAccountLocked, true, res.UserID, email, nil, func() map[string]string {
			return map[string]string{"failed_attempts": fmt.Sprint(res.FailedAttempts)}
		})
	default:
		if KindOf(err) == KindUnauthorized {
			e.metricInc(MetricLoginFailure)
			log.Info("login rejected")
		}
	}

	e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, email, err, func() map[string]string {
		return map[string]string{"reason": loginReason(res.Failure)}
	})
	return nil, err
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		ClientIPFromContext: ClientIPFromContext,
		CheckIPThrottle:     e.rateLimiter.CheckLogin,
		IncrementIPThrottle: e.rateLimiter.IncrementLogin,
		ResetIPThrottle:     e.rateLimiter.ResetLogin,

		FindUser:        e.findUser,
		IsNotFound:      isNotFound,
		ResolveStates:   e.resolveStates,
		VerifyPassword:  password.Verify,
		ResolveUserType: e.catalog.UserTypeName,

		RecordFailure: e.lockout.RecordFailure,
		ResetFailures: e.lockout.Reset,
		UpdateFailedAttempts: func(ctx context.Context, userID string, attempts int) error {
			return e.users.UpdateCredentials(ctx, userID, CredentialUpdate{FailedAttempts: &attempts})
		},
		BlockUser: func(ctx context.Context, userID string, blockedCode, attempts int) error {
			return e.users.UpdateCredentials(ctx, userID, CredentialUpdate{
				FailedAttempts: &attempts,
				StateCode:      &blockedCode,
			})
		},

		IssueTokens: e.issueTokens,
	}
}

func (e *Engine) loginError(res internalflows.LoginResult) error {
	reveal := e.config.Security.RevealAccountState

	switch res.Failure {
	case internalflows.LoginFailureRateLimited:
		return ErrLoginRateLimited
	case internalflows.LoginFailureUserNotFound,
		internalflows.LoginFailurePassword,
		internalflows.LoginFailureUserType:
		return ErrInvalidCredentials
	case internalflows.LoginFailureBlocked:
		if reveal {
			return ErrAccountBlocked
		}
		return ErrInvalidCredentials
	case internalflows.LoginFailureInactive:
		if reveal {
			return ErrAccountInactive
		}
		return ErrInvalidCredentials
	case internalflows.LoginFailureLocked:
		if reveal {
			return ErrAccountLocked
		}
		return ErrInvalidCredentials
	case internalflows.LoginFailureStates:
		if errors.Is(res.Err, ErrStateUnresolved) {
			e.logger.Error("catalog has no usable account state codes")
			return ErrStateUnresolved
		}
		return e.downstream("resolve_states", res.Err)
	case internalflows.LoginFailureThrottleBackend:
		return e.downstream("login_throttle", res.Err)
	case internalflows.LoginFailureUserLookup:
		return e.downstream("find_user", res.Err)
	case internalflows.LoginFailureCounter:
		return e.downstream("lockout_counter", res.Err)
	case internalflows.LoginFailureRecordUpdate:
		return e.downstream("update_user", res.Err)
	case internalflows.LoginFailureUserTypeLookup:
		return e.downstream("user_type", res.Err)
	case internalflows.LoginFailureSession:
		return e.downstream("session_store", res.Err)
	case internalflows.LoginFailurePasswordHash:
		return fmt.Errorf("verify stored password hash: %w", res.Err)
	case internalflows.LoginFailureIssue:
		return fmt.Errorf("issue tokens: %w", res.Err)
	default:
		return ErrInvalidCredentials
	}
}

func loginReason(kind internalflows.LoginFailureKind) string {
	switch kind {
	case internalflows.LoginFailureRateLimited:
		return "rate_limited"
	case internalflows.LoginFailureUserNotFound:
		return "user_not_found"
	case internalflows.LoginFailureBlocked:
		return "account_blocked"
	case internalflows.LoginFailureInactive:
		return "account_inactive"
	case internalflows.LoginFailurePassword:
		return "wrong_password"
	case internalflows.LoginFailureLocked:
		return "account_locked"
	case internalflows.LoginFailureUserType:
		return "user_type_mismatch"
	case internalflows.LoginFailurePasswordHash:
		return "password_hash"
	case internalflows.LoginFailureIssue:
		return "token_issue"
	case internalflows.LoginFailureNone:
		return ""
	default:
		return "backend_unavailable"
	}
}
