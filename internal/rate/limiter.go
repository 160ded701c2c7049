package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	Prefix                  string
}

// hitScript increments KEYS[1] and starts its window on the first hit.
// ARGV[1] is the window length in milliseconds.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// window is one fixed-window counter family.
type window struct {
	rdb     redis.UniversalClient
	prefix  string
	enabled bool
	max     int64
	length  time.Duration
}

func (w window) key(id string) string { return w.prefix + id }

func (w window) hit(ctx context.Context, id string) (int64, error) {
	n, err := hitScript.Run(ctx, w.rdb, []string{w.key(id)}, w.length.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

func (w window) peek(ctx context.Context, id string) (int64, error) {
	n, err := w.rdb.Get(ctx, w.key(id)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	case n < 0:
		return 0, nil
	}
	return n, nil
}

// Limiter throttles failed logins per client IP and refresh calls per user.
type Limiter struct {
	loginIP window
	refresh window
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	ns := "rl:"
	if cfg.Prefix != "" {
		ns = cfg.Prefix + ":rl:"
	}
	return &Limiter{
		loginIP: window{
			rdb:     rdb,
			prefix:  ns + "login_ip:",
			enabled: cfg.EnableIPThrottle,
			max:     int64(cfg.MaxLoginAttempts),
			length:  cfg.LoginCooldownDuration,
		},
		refresh: window{
			rdb:     rdb,
			prefix:  ns + "refresh:",
			enabled: cfg.EnableRefreshThrottle,
			max:     int64(cfg.MaxRefreshAttempts),
			length:  cfg.RefreshCooldownDuration,
		},
	}
}

// CheckLogin returns [ErrRateLimited] when ip has exhausted its failed-login budget.
func (l *Limiter) CheckLogin(ctx context.Context, ip string) error {
	if !l.loginIP.enabled || ip == "" {
		return nil
	}
	n, err := l.loginIP.peek(ctx, ip)
	if err != nil {
		return err
	}
	if n >= l.loginIP.max {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed login attempt from ip.
func (l *Limiter) IncrementLogin(ctx context.Context, ip string) error {
	if !l.loginIP.enabled || ip == "" {
		return nil
	}
	n, err := l.loginIP.hit(ctx, ip)
	if err != nil {
		return err
	}
	if n > l.loginIP.max {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failed-login counter for ip after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, ip string) error {
	if !l.loginIP.enabled || ip == "" {
		return nil
	}
	if err := l.loginIP.rdb.Del(ctx, l.loginIP.key(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts one refresh for userID and returns [ErrRateLimited] past the budget.
func (l *Limiter) CheckRefresh(ctx context.Context, userID string) error {
	if !l.refresh.enabled || userID == "" {
		return nil
	}
	n, err := l.refresh.hit(ctx, userID)
	if err != nil {
		return err
	}
	if n > l.refresh.max {
		return ErrRateLimited
	}
	return nil
}

// GetLoginAttempts returns the current failed-login counter for ip.
func (l *Limiter) GetLoginAttempts(ctx context.Context, ip string) (int, error) {
	n, err := l.loginIP.peek(ctx, ip)
	return int(n), err
}
