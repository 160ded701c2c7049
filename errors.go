package carnet

import (
	"errors"

	"github.com/carnet-digital/carnet/internal/rate"
	"github.com/carnet-digital/carnet/session"
)

var (
	// ErrUnauthorized is an exported constant or variable used by the authentication engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned on the failed attempt that reaches the lockout threshold.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountBlocked is returned when the record is already in the catalog "blocked" state.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrAccountInactive is returned when the record is in any state other than active or blocked.
	ErrAccountInactive = errors.New("account inactive")
	// ErrRefreshInvalid is an exported constant or variable used by the authentication engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is returned by [Engine.ValidateClaims] for blacklisted tokens.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrForbidden is returned when an authenticated caller lacks the user type an operation needs.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound must be wrapped by collaborators when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDownstreamUnavailable must be wrapped by collaborators on timeouts, connection
	// failures, open circuits and 5xx answers.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
	// ErrSessionStoreUnavailable is returned when Redis cannot be reached.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrValidation is returned for malformed input rejected before any collaborator call.
	ErrValidation = errors.New("validation failed")
	// ErrStateUnresolved is returned when the catalog has no usable active/blocked state codes.
	ErrStateUnresolved = errors.New("account state codes unresolved")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind is the coarse taxonomy every Engine error maps to. Transport
// adapters translate kinds into status codes; nothing below them does.
type ErrorKind uint8

const (
	// KindInternal covers programming and configuration faults.
	KindInternal ErrorKind = iota
	// KindUnauthorized covers bad credentials, blocked or inactive accounts and invalid tokens.
	KindUnauthorized
	// KindForbidden covers authenticated callers without the required user type.
	KindForbidden
	// KindNotFound covers records missing on internal collaborator calls.
	KindNotFound
	// KindDownstreamUnavailable covers collaborator and session-store outages.
	KindDownstreamUnavailable
	// KindValidation covers malformed input.
	KindValidation
	// KindRateLimited covers throttled callers.
	KindRateLimited
)

// String returns the snake_case name of k.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindDownstreamUnavailable:
		return "downstream_unavailable"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are [KindInternal].
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited),
		errors.Is(err, rate.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrAccountBlocked),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenRevoked):
		return KindUnauthorized
	case errors.Is(err, ErrDownstreamUnavailable),
		errors.Is(err, ErrSessionStoreUnavailable),
		errors.Is(err, session.ErrRedisUnavailable):
		return KindDownstreamUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
