package carnet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
	"github.com/sirupsen/logrus"
)

// UnlockAccount returns a blocked account to the active state with zero failed
// attempts and clears its lockout counter. Unknown emails return [ErrNotFound].
//
// Authorization is the caller's job; see [Engine.IsAdmin].
func (e *Engine) UnlockAccount(ctx context.Context, email string) error {
	if e == nil || e.users == nil || e.catalog == nil {
		return ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := internalflows.RunUnlock(ctx, email, internalflows.UnlockDeps{
		FindUser:      e.findUser,
		IsNotFound:    isNotFound,
		ResolveStates: e.resolveStates,
		ActivateUser: func(ctx context.Context, userID string, activeCode int) error {
			zero := 0
			return e.users.UpdateCredentials(ctx, userID, CredentialUpdate{
				FailedAttempts: &zero,
				StateCode:      &activeCode,
			})
		},
		ResetFailures: e.lockout.Reset,
	})

	var err error
	switch res.Failure {
	case internalflows.UnlockFailureNone:
		e.metricInc(MetricAccountUnlocked)
		e.logger.WithFields(logrus.Fields{
			"email":       email,
			"user_id":     res.UserID,
			"was_blocked": res.WasBlocked,
		}).Info("account unlocked")
		e.emitAudit(ctx, auditEventAccountUnlocked, true, res.UserID, email, nil, func() map[string]string {
			return map[string]string{"was_blocked": fmt.Sprint(res.WasBlocked)}
		})
		return nil
	case internalflows.UnlockFailureUserNotFound:
		err = fmt.Errorf("%w: no account for %s", ErrNotFound, email)
	case internalflows.UnlockFailureStates:
		if errors.Is(res.Err, ErrStateUnresolved) {
			err = ErrStateUnresolved
		} else {
			err = e.downstream("resolve_states", res.Err)
		}
	case internalflows.UnlockFailureUserLookup:
		err = e.downstream("find_user", res.Err)
	case internalflows.UnlockFailureUpdate:
		err = e.downstream("update_user", res.Err)
	case internalflows.UnlockFailureCounter:
		err = e.downstream("lockout_counter", res.Err)
	}

	e.emitAudit(ctx, auditEventAccountUnlocked, false, res.UserID, email, err, nil)
	return err
}

// FailedAttempts returns the lockout counter for email; 0 when no failure is on record.
func (e *Engine) FailedAttempts(ctx context.Context, email string) (int, error) {
	if e == nil || e.lockout == nil {
		return 0, ErrEngineNotReady
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	n, err := e.lockout.GetFailureCount(ctx, normalizeEmail(email))
	if err != nil {
		return 0, e.downstream("lockout_counter", err)
	}
	return n, nil
}
