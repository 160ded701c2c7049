package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the progressive account lockout counter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Window    time.Duration // 0 = counter never expires on its own
	Prefix    string
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// The counter is seeded from the credential record the first time it is touched,
// so a fresh Redis does not forget failures the user service already recorded.
const recordFailureScript = `
local created = redis.call("EXISTS", KEYS[1]) == 0
if created then
  redis.call("SET", KEYS[1], ARGV[1])
end
local n = redis.call("INCR", KEYS[1])
local window = tonumber(ARGV[2])
if created and window > 0 then
  redis.call("PEXPIRE", KEYS[1], window)
end
return n
`

var recordFailureLua = redis.NewScript(recordFailureScript)

// LockoutLimiter counts failed password checks per email and reports when the
// configured threshold is reached.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) key(email string) string {
	prefix := l.config.Prefix
	if prefix == "" {
		prefix = "lockout"
	} else {
		prefix += ":lockout"
	}
	return prefix + ":" + strings.ToLower(strings.TrimSpace(email))
}

// RecordFailure atomically increments the failure counter for email and returns
// the new count. seed is the failed-attempt count already persisted on the
// credential record; it only applies when no counter exists yet. locked is true
// once count reaches the threshold.
//
// When the limiter is disabled the counter is not touched and seed+1 is returned
// so the caller can still persist the attempt.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, email string, seed int) (count int, locked bool, err error) {
	if seed < 0 {
		seed = 0
	}
	if !l.config.Enabled || email == "" {
		return seed + 1, false, nil
	}

	n, err := recordFailureLua.Run(ctx, l.redis, []string{l.key(email)}, seed, l.config.Window.Milliseconds()).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return int(n), l.config.Threshold > 0 && n >= int64(l.config.Threshold), nil
}

// Reset clears the failure counter (successful login, lockout applied or manual unlock).
func (l *LockoutLimiter) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// GetFailureCount returns the current failure count for email.
func (l *LockoutLimiter) GetFailureCount(ctx context.Context, email string) (int, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}

// Threshold returns the configured lockout threshold.
func (l *LockoutLimiter) Threshold() int {
	return l.config.Threshold
}
