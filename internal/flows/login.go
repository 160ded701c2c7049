package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/carnet-digital/carnet/internal/rate"
	"github.com/carnet-digital/carnet/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureThrottleBackend
	LoginFailureUserNotFound
	LoginFailureUserLookup
	LoginFailureStates
	LoginFailureBlocked
	LoginFailureInactive
	LoginFailurePasswordHash
	LoginFailurePassword
	LoginFailureLocked
	LoginFailureCounter
	LoginFailureRecordUpdate
	LoginFailureUserType
	LoginFailureUserTypeLookup
	LoginFailureIssue
	LoginFailureSession
)

// LoginResult carries either the issued tokens or failure metadata.
type LoginResult struct {
	Failure        LoginFailureKind
	Err            error
	UserID         string
	UserType       string
	FailedAttempts int
	Tokens         IssuedTokens
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	CheckIPThrottle     func(ctx context.Context, ip string) error
	IncrementIPThrottle func(ctx context.Context, ip string) error
	ResetIPThrottle     func(ctx context.Context, ip string) error

	FindUser        func(ctx context.Context, email string) (LoginUser, error)
	IsNotFound      func(error) bool
	ResolveStates   func(ctx context.Context) (AccountStates, error)
	VerifyPassword  func(plain, encoded string) (bool, error)
	ResolveUserType func(ctx context.Context, code int) (string, error)

	RecordFailure        func(ctx context.Context, email string, seed int) (int, bool, error)
	ResetFailures        func(ctx context.Context, email string) error
	UpdateFailedAttempts func(ctx context.Context, userID string, attempts int) error
	BlockUser            func(ctx context.Context, userID string, blockedCode, attempts int) error

	IssueTokens TokenIssuer
}

// RunLogin executes the login steps in order: throttle, lookup, account state,
// password, lockout bookkeeping, user-type check, token issuance.
func RunLogin(ctx context.Context, email, password, claimedType string, deps LoginDeps) LoginResult {
	ip := deps.ClientIPFromContext(ctx)
	if err := deps.CheckIPThrottle(ctx, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
		return LoginResult{Failure: LoginFailureThrottleBackend, Err: err}
	}

	user, err := deps.FindUser(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			_ = deps.IncrementIPThrottle(ctx, ip)
			return LoginResult{Failure: LoginFailureUserNotFound, Err: err}
		}
		return LoginResult{Failure: LoginFailureUserLookup, Err: err}
	}
	if user.Email == "" {
		user.Email = email
	}

	states, err := deps.ResolveStates(ctx)
	if err != nil {
		return LoginResult{Failure: LoginFailureStates, Err: err, UserID: user.UserID}
	}
	if user.StateCode != states.Active {
		if states.Blocked != 0 && user.StateCode == states.Blocked {
			return LoginResult{Failure: LoginFailureBlocked, UserID: user.UserID, FailedAttempts: user.FailedAttempts}
		}
		return LoginResult{Failure: LoginFailureInactive, UserID: user.UserID, FailedAttempts: user.FailedAttempts}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailurePasswordHash, Err: err, UserID: user.UserID}
	}
	if !ok {
		return recordPasswordFailure(ctx, ip, user, states, deps)
	}

	if user.FailedAttempts > 0 {
		if err := deps.UpdateFailedAttempts(ctx, user.UserID, 0); err != nil {
			return LoginResult{Failure: LoginFailureRecordUpdate, Err: err, UserID: user.UserID}
		}
	}
	if err := deps.ResetFailures(ctx, user.Email); err != nil {
		return LoginResult{Failure: LoginFailureCounter, Err: err, UserID: user.UserID}
	}

	// A wrong claimed type is not evidence of password guessing: no counter change.
	typeName, err := deps.ResolveUserType(ctx, user.UserTypeCode)
	if err != nil {
		if deps.IsNotFound(err) {
			return LoginResult{Failure: LoginFailureUserType, Err: err, UserID: user.UserID}
		}
		return LoginResult{Failure: LoginFailureUserTypeLookup, Err: err, UserID: user.UserID}
	}
	if !strings.EqualFold(strings.TrimSpace(typeName), strings.TrimSpace(claimedType)) {
		return LoginResult{Failure: LoginFailureUserType, UserID: user.UserID, UserType: typeName}
	}

	tokens, err := deps.IssueTokens(ctx, user.UserID, user.Email, typeName)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return LoginResult{Failure: LoginFailureSession, Err: err, UserID: user.UserID}
		}
		return LoginResult{Failure: LoginFailureIssue, Err: err, UserID: user.UserID}
	}

	// only a completed login clears the per-IP budget
	_ = deps.ResetIPThrottle(ctx, ip)
	return LoginResult{UserID: user.UserID, UserType: typeName, Tokens: tokens}
}

func recordPasswordFailure(ctx context.Context, ip string, user LoginUser, states AccountStates, deps LoginDeps) LoginResult {
	_ = deps.IncrementIPThrottle(ctx, ip)

	count, locked, err := deps.RecordFailure(ctx, user.Email, user.FailedAttempts)
	if err != nil {
		return LoginResult{Failure: LoginFailureCounter, Err: err, UserID: user.UserID}
	}

	if locked && states.Blocked != 0 {
		if err := deps.BlockUser(ctx, user.UserID, states.Blocked, count); err != nil {
			return LoginResult{Failure: LoginFailureRecordUpdate, Err: err, UserID: user.UserID, FailedAttempts: count}
		}
		// the block is persisted on the record, the fast counter is no longer needed
		_ = deps.ResetFailures(ctx, user.Email)
		return LoginResult{Failure: LoginFailureLocked, UserID: user.UserID, FailedAttempts: count}
	}

	if err := deps.UpdateFailedAttempts(ctx, user.UserID, count); err != nil {
		return LoginResult{Failure: LoginFailureRecordUpdate, Err: err, UserID: user.UserID, FailedAttempts: count}
	}
	return LoginResult{Failure: LoginFailurePassword, UserID: user.UserID, FailedAttempts: count}
}
