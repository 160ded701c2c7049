package carnet

import (
	"context"
	"fmt"
	"strings"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
)

// Logout revokes accessToken until its natural expiry. An expired token is
// accepted as a no-op. refreshToken may be empty; when it belongs to the same
// subject its record is deleted so it can no longer be redeemed.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrValidation)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := internalflows.RunLogout(ctx, accessToken, strings.TrimSpace(refreshToken), internalflows.LogoutDeps{
		Now:           e.now,
		ParseAccess:   e.jwtManager.ParseAccess,
		ParseRefresh:  e.jwtManager.ParseRefresh,
		Blacklist:     e.sessionStore.Blacklist,
		RevokeRefresh: e.sessionStore.RevokeRefresh,
	})

	switch res.Failure {
	case internalflows.LogoutFailureNone:
	case internalflows.LogoutFailureParse:
		return ErrTokenInvalid
	case internalflows.LogoutFailureBlacklist:
		return e.downstream("blacklist", res.Err)
	case internalflows.LogoutFailureRevokeRefresh:
		// the access token is already revoked at this point
		return e.downstream("revoke_refresh", res.Err)
	}

	if res.Expired {
		return nil
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"refresh_revoked": fmt.Sprint(res.RefreshRevoked)}
	})
	return nil
}
