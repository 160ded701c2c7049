package flows

import "context"

// UnlockFailureKind classifies unlock flow failures for root-level mapping.
type UnlockFailureKind int

const (
	UnlockFailureNone UnlockFailureKind = iota
	UnlockFailureUserNotFound
	UnlockFailureUserLookup
	UnlockFailureStates
	UnlockFailureUpdate
	UnlockFailureCounter
)

// UnlockResult reports the unlocked account.
type UnlockResult struct {
	Failure    UnlockFailureKind
	Err        error
	UserID     string
	WasBlocked bool
}

// UnlockDeps captures manual-unblock dependencies.
type UnlockDeps struct {
	FindUser      func(ctx context.Context, email string) (LoginUser, error)
	IsNotFound    func(error) bool
	ResolveStates func(ctx context.Context) (AccountStates, error)
	ActivateUser  func(ctx context.Context, userID string, activeCode int) error
	ResetFailures func(ctx context.Context, email string) error
}

// RunUnlock sets the account back to the active state with zero failed attempts
// and clears the fast counter.
func RunUnlock(ctx context.Context, email string, deps UnlockDeps) UnlockResult {
	user, err := deps.FindUser(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			return UnlockResult{Failure: UnlockFailureUserNotFound, Err: err}
		}
		return UnlockResult{Failure: UnlockFailureUserLookup, Err: err}
	}
	if user.Email == "" {
		user.Email = email
	}

	states, err := deps.ResolveStates(ctx)
	if err != nil {
		return UnlockResult{Failure: UnlockFailureStates, Err: err, UserID: user.UserID}
	}
	res := UnlockResult{UserID: user.UserID, WasBlocked: states.Blocked != 0 && user.StateCode == states.Blocked}

	if err := deps.ActivateUser(ctx, user.UserID, states.Active); err != nil {
		res.Failure, res.Err = UnlockFailureUpdate, err
		return res
	}
	if err := deps.ResetFailures(ctx, user.Email); err != nil {
		res.Failure, res.Err = UnlockFailureCounter, err
		return res
	}
	return res
}
