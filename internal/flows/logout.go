package flows

import (
	"context"
	"time"

	"github.com/carnet-digital/carnet/jwt"
)

// LogoutFailureKind classifies logout flow failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureParse
	LogoutFailureBlacklist
	LogoutFailureRevokeRefresh
)

// LogoutResult reports what logout did.
type LogoutResult struct {
	Failure        LogoutFailureKind
	Err            error
	UserID         string
	Expired        bool
	Remaining      time.Duration
	RefreshRevoked bool
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Now           func() time.Time
	ParseAccess   func(token string) (*jwt.Claims, error)
	ParseRefresh  func(token string) (*jwt.Claims, error)
	Blacklist     func(ctx context.Context, token string, ttl time.Duration) error
	RevokeRefresh func(ctx context.Context, token string) (bool, error)
}

// RunLogout blacklists access for exactly its remaining lifetime. An already
// expired token is a successful no-op. refreshToken is optional; it is revoked
// only when it verifies and belongs to the same subject.
func RunLogout(ctx context.Context, accessToken, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseAccess(accessToken)
	if err != nil {
		if jwt.IsExpired(err) {
			return LogoutResult{Expired: true}
		}
		return LogoutResult{Failure: LogoutFailureParse, Err: err}
	}

	res := LogoutResult{UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		res.Remaining = claims.ExpiresAt.Time.Sub(deps.Now())
	}
	if res.Remaining <= 0 {
		res.Expired = true
		return res
	}

	if err := deps.Blacklist(ctx, accessToken, res.Remaining); err != nil {
		res.Failure, res.Err = LogoutFailureBlacklist, err
		return res
	}

	if refreshToken == "" {
		return res
	}
	rc, err := deps.ParseRefresh(refreshToken)
	if err != nil || rc.Subject != claims.Subject {
		return res
	}
	revoked, err := deps.RevokeRefresh(ctx, refreshToken)
	if err != nil {
		res.Failure, res.Err = LogoutFailureRevokeRefresh, err
		return res
	}
	res.RefreshRevoked = revoked
	return res
}
