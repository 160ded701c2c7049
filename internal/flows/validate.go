package flows

import (
	"context"

	"github.com/carnet-digital/carnet/jwt"
)

// ValidateFailureKind classifies validate flow failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureParse
	ValidateFailureRevoked
	ValidateFailureStore
)

// ValidateResult carries verified claims or failure metadata.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures validate flow dependencies.
type ValidateDeps struct {
	ParseAccess   func(token string) (*jwt.Claims, error)
	IsBlacklisted func(ctx context.Context, token string) (bool, error)
}

// RunValidate verifies signature and expiry, then probes the blacklist for the exact token.
func RunValidate(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureParse, Err: err}
	}

	revoked, err := deps.IsBlacklisted(ctx, token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}
