package carnet

import (
	"context"
	"strings"
	"time"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
)

// Validate reports whether token is a live, non-revoked access token. It never
// returns an error: malformed, expired and revoked tokens as well as Redis
// faults all yield false.
func (e *Engine) Validate(ctx context.Context, token string) bool {
	start := time.Now()
	_, err := e.ValidateClaims(ctx, token)
	if e != nil && e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	return err == nil
}

// ValidateClaims is [Engine.Validate] returning the verified claims.
//
// Errors: [ErrTokenInvalid] for malformed, expired or wrongly signed tokens,
// [ErrTokenRevoked] for blacklisted ones and [ErrSessionStoreUnavailable] when
// the blacklist cannot be read.
func (e *Engine) ValidateClaims(ctx context.Context, token string) (*Claims, error) {
	if e == nil || e.jwtManager == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	token = strings.TrimSpace(token)
	if token == "" {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res := internalflows.RunValidate(ctx, token, internalflows.ValidateDeps{
		ParseAccess:   e.jwtManager.ParseAccess,
		IsBlacklisted: e.sessionStore.IsBlacklisted,
	})

	switch res.Failure {
	case internalflows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return res.Claims, nil
	case internalflows.ValidateFailureRevoked:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenRevoked
	case internalflows.ValidateFailureStore:
		e.metricInc(MetricValidateFailure)
		return nil, e.downstream("blacklist", res.Err)
	default:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}
}
