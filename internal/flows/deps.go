package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Unlock   UnlockDeps
}

// LoginUser is the flow-local credential record.
type LoginUser struct {
	UserID         string
	Email          string
	PasswordHash   string
	UserTypeCode   int
	StateCode      int
	FailedAttempts int
}

// AccountStates holds the resolved catalog codes. Blocked is 0 when unknown.
type AccountStates struct {
	Active  int
	Blocked int
}

// IssuedTokens is a freshly signed and persisted token pair.
type IssuedTokens struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// TokenIssuer signs an access/refresh pair for an identity and persists the refresh record.
type TokenIssuer func(ctx context.Context, userID, email, userType string) (IssuedTokens, error)
