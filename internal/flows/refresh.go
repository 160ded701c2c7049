package flows

import (
	"context"
	"errors"

	"github.com/carnet-digital/carnet/internal/rate"
	"github.com/carnet-digital/carnet/jwt"
	"github.com/carnet-digital/carnet/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureThrottleBackend
	RefreshFailureNotFound
	RefreshFailureStore
	RefreshFailureMismatch
	RefreshFailureIssue
	RefreshFailureSession
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	UserID   string
	Email    string
	UserType string
	Tokens   IssuedTokens
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh     func(token string) (*jwt.Claims, error)
	CheckRefreshRate func(ctx context.Context, userID string) error
	Redeem           func(ctx context.Context, token string) (*session.RefreshRecord, error)
	IssueTokens      TokenIssuer
}

// RunRefresh verifies the refresh token, consumes its stored record in one
// atomic step and issues a new pair from the stored claims. The old token is
// gone before the new one exists, so a leaked token buys at most one redemption.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	if err := deps.CheckRefreshRate(ctx, claims.Subject); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, UserID: claims.Subject}
		}
		return RefreshResult{Failure: RefreshFailureThrottleBackend, Err: err, UserID: claims.Subject}
	}

	rec, err := deps.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrRefreshNotFound) || errors.Is(err, session.ErrRecordCorrupt) {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err, UserID: claims.Subject}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: claims.Subject}
	}
	if rec.UserID != claims.Subject || (rec.TokenID != "" && rec.TokenID != claims.ID) {
		return RefreshResult{Failure: RefreshFailureMismatch, UserID: claims.Subject}
	}

	tokens, err := deps.IssueTokens(ctx, rec.UserID, rec.Email, rec.UserType)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return RefreshResult{Failure: RefreshFailureSession, Err: err, UserID: rec.UserID}
		}
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: rec.UserID}
	}

	return RefreshResult{UserID: rec.UserID, Email: rec.Email, UserType: rec.UserType, Tokens: tokens}
}
