package carnet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/carnet-digital/carnet/internal/audit"
	internalflows "github.com/carnet-digital/carnet/internal/flows"
	"github.com/carnet-digital/carnet/internal/limiters"
	"github.com/carnet-digital/carnet/internal/rate"
	"github.com/carnet-digital/carnet/jwt"
	"github.com/carnet-digital/carnet/session"
	"github.com/sirupsen/logrus"
)

// Engine is the auth orchestrator. It coordinates the user and catalog
// collaborators, the Redis session store and the token manager.
//
// An Engine is built once with [Builder] and is safe for concurrent use.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	lockout      *limiters.LockoutLimiter
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	users        UserProvider
	catalog      CatalogProvider
	logger       logrus.FieldLogger
	now          func() time.Time

	states stateCache
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many bitácora events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Ping checks the session store and returns its round-trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return 0, ErrSessionStoreUnavailable
	}
	return d, nil
}

// IsAdmin reports whether claims belong to a user type allowed to administer accounts.
func (e *Engine) IsAdmin(claims *Claims) bool {
	if e == nil || claims == nil {
		return false
	}
	for _, t := range e.config.Security.AdminUserTypes {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(claims.UserType)) {
			return true
		}
	}
	return false
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.Timeout)
}

// issueTokens signs a fresh pair and stores the refresh record. Used by login
// and refresh alike so both paths persist identical records.
func (e *Engine) issueTokens(ctx context.Context, userID, email, userType string) (internalflows.IssuedTokens, error) {
	access, accessClaims, err := e.jwtManager.IssueAccess(userID, email, userType)
	if err != nil {
		return internalflows.IssuedTokens{}, err
	}
	refresh, refreshClaims, err := e.jwtManager.IssueRefresh(userID, email, userType)
	if err != nil {
		return internalflows.IssuedTokens{}, err
	}

	rec := &session.RefreshRecord{
		UserID:    userID,
		Email:     email,
		UserType:  userType,
		TokenID:   refreshClaims.ID,
		CreatedAt: refreshClaims.IssuedAt.Time,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}
	if err := e.sessionStore.SaveRefresh(ctx, refresh, rec, e.jwtManager.RefreshTTL()); err != nil {
		return internalflows.IssuedTokens{}, err
	}

	return internalflows.IssuedTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     accessClaims.IssuedAt.Time,
		ExpiresAt:    accessClaims.ExpiresAt.Time,
	}, nil
}

func (e *Engine) toTokenPair(userID, userType string, tokens internalflows.IssuedTokens) *TokenPair {
	return &TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresAt.Sub(tokens.IssuedAt),
		ExpiresAt:    tokens.ExpiresAt,
		UserID:       userID,
		UserType:     userType,
	}
}

func (e *Engine) findUser(ctx context.Context, email string) (internalflows.LoginUser, error) {
	rec, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return internalflows.LoginUser{}, err
	}
	return internalflows.LoginUser{
		UserID:         rec.ID,
		Email:          rec.Email,
		PasswordHash:   rec.PasswordHash,
		UserTypeCode:   rec.UserTypeCode,
		StateCode:      rec.StateCode,
		FailedAttempts: rec.FailedAttempts,
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (e *Engine) emailDomainAllowed(email string) bool {
	domains := e.config.Security.AllowedEmailDomains
	if len(domains) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range domains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}

// downstream records a collaborator or store fault and returns err wrapped with
// the sentinel callers classify on.
func (e *Engine) downstream(op string, err error) error {
	e.metricInc(MetricDownstreamFailure)
	e.logger.WithFields(logrus.Fields{"op": op}).WithError(err).Warn("downstream call failed")

	switch {
	case errors.Is(err, ErrDownstreamUnavailable), errors.Is(err, ErrSessionStoreUnavailable):
		return err
	case errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, limiters.ErrLockoutUnavailable),
		errors.Is(err, rate.ErrRedisUnavailable):
		return fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrDownstreamUnavailable, err)
	}
}
