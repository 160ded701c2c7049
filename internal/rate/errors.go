package rate

import "errors"

var (
	// ErrRateLimited means the caller used up its budget for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any failure talking to the counter backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
