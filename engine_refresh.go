package carnet

import (
	"context"
	"fmt"
	"strings"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
	"github.com/sirupsen/logrus"
)

// Refresh redeems a refresh token and returns a rotated pair built from the
// claims stored at issuance. The presented token is consumed before the new
// pair is signed; a second redemption of the same token returns [ErrRefreshInvalid].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrValidation)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := internalflows.RunRefresh(ctx, refreshToken, internalflows.RefreshDeps{
		ParseRefresh:     e.jwtManager.ParseRefresh,
		CheckRefreshRate: e.rateLimiter.CheckRefresh,
		Redeem:           e.sessionStore.RedeemRefresh,
		IssueTokens:      e.issueTokens,
	})
	if res.Failure == internalflows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.Email, nil, nil)
		return e.toTokenPair(res.UserID, res.UserType, res.Tokens), nil
	}

	var err error
	event := auditEventRefreshFailure
	switch res.Failure {
	case internalflows.RefreshFailureDecode:
		err = ErrRefreshInvalid
		e.metricInc(MetricRefreshFailure)
	case internalflows.RefreshFailureNotFound, internalflows.RefreshFailureMismatch:
		err = ErrRefreshInvalid
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReplayRejected)
		e.logger.WithFields(logrus.Fields{"user_id": res.UserID}).Warn("refresh token without live record rejected")
		event = auditEventRefreshReplayRejected
	case internalflows.RefreshFailureRateLimited:
		err = ErrRefreshRateLimited
		e.metricInc(MetricRefreshRateLimited)
	case internalflows.RefreshFailureThrottleBackend:
		err = e.downstream("refresh_throttle", res.Err)
	case internalflows.RefreshFailureStore, internalflows.RefreshFailureSession:
		err = e.downstream("session_store", res.Err)
	case internalflows.RefreshFailureIssue:
		err = fmt.Errorf("issue tokens: %w", res.Err)
	default:
		err = ErrRefreshInvalid
	}

	e.emitAudit(ctx, event, false, res.UserID, "", err, nil)
	return nil, err
}
