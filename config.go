package carnet

import (
	"errors"
	"strings"
	"time"
)

// Config is the full engine configuration. Build one with [DefaultConfig] and
// override fields; [Builder.Build] calls [Config.Validate].
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Lockout  LockoutConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// Timeout bounds every engine operation, collaborator and Redis calls included.
	Timeout time.Duration
}

// JWTConfig controls token signing.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string
}

// LockoutConfig controls progressive lockout and account-state resolution.
//
// The active and blocked state codes are looked up by name in the catalog and
// cached for StateCacheTTL. ActiveStateCode / BlockedStateCode are used when the
// catalog has no entry with the configured name; 0 means no fallback.
type LockoutConfig struct {
	Enabled          bool
	Threshold        int
	Window           time.Duration
	ActiveStateName  string
	BlockedStateName string
	ActiveStateCode  int
	BlockedStateCode int
	StateCacheTTL    time.Duration
}

// SecurityConfig holds hardening switches.
type SecurityConfig struct {
	// RevealAccountState makes blocked/inactive logins fail with their own
	// message instead of the generic one. Off by default.
	RevealAccountState bool
	// AdminUserTypes lists user-type names allowed to unlock accounts.
	AdminUserTypes []string
	// AllowedEmailDomains restricts login to these domains when non-empty.
	AllowedEmailDomains []string

	EnableIPThrottle      bool
	MaxLoginAttemptsPerIP int
	LoginIPCooldown       time.Duration

	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// AuditConfig controls the bitácora dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the defaults the services have always run with:
// 5 minute access tokens, 900 second refresh tokens and lockout after 3 failures.
// Secrets are left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  5 * time.Minute,
			RefreshTTL: 900 * time.Second,
			Issuer:     "carnet-auth",
		},
		Session: SessionConfig{
			RedisPrefix: "carnet",
		},
		Lockout: LockoutConfig{
			Enabled:          true,
			Threshold:        3,
			Window:           24 * time.Hour,
			ActiveStateName:  "activo",
			BlockedStateName: "bloqueado",
			ActiveStateCode:  1,
			StateCacheTTL:    5 * time.Minute,
		},
		Security: SecurityConfig{
			AdminUserTypes:        []string{"administrador"},
			MaxLoginAttemptsPerIP: 20,
			LoginIPCooldown:       15 * time.Minute,
			MaxRefreshAttempts:    30,
			RefreshCooldown:       time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Timeout: 5 * time.Second,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret must be set")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Lockout.Enabled && c.Lockout.Threshold < 1 {
		return errors.New("Lockout Threshold must be >= 1 when lockout is enabled")
	}
	if c.Lockout.Window < 0 {
		return errors.New("Lockout Window must be >= 0")
	}
	if strings.TrimSpace(c.Lockout.ActiveStateName) == "" && c.Lockout.ActiveStateCode == 0 {
		return errors.New("Lockout needs ActiveStateName or ActiveStateCode")
	}
	if c.Lockout.Enabled && strings.TrimSpace(c.Lockout.BlockedStateName) == "" && c.Lockout.BlockedStateCode == 0 {
		return errors.New("Lockout needs BlockedStateName or BlockedStateCode")
	}
	if c.Lockout.StateCacheTTL < 0 {
		return errors.New("Lockout StateCacheTTL must be >= 0")
	}

	if c.Security.EnableIPThrottle && (c.Security.MaxLoginAttemptsPerIP < 1 || c.Security.LoginIPCooldown <= 0) {
		return errors.New("Security IP throttle needs MaxLoginAttemptsPerIP >= 1 and LoginIPCooldown > 0")
	}
	if c.Security.EnableRefreshThrottle && (c.Security.MaxRefreshAttempts < 1 || c.Security.RefreshCooldown <= 0) {
		return errors.New("Security refresh throttle needs MaxRefreshAttempts >= 1 and RefreshCooldown > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	for _, d := range c.Security.AllowedEmailDomains {
		if strings.TrimSpace(d) == "" || strings.Contains(d, "@") {
			return errors.New("Security AllowedEmailDomains entries must be bare domains")
		}
	}
	if c.Timeout <= 0 {
		return errors.New("Timeout must be > 0")
	}

	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.AccessSecret = cloneBytes(c.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(c.JWT.RefreshSecret)
	out.Security.AdminUserTypes = append([]string(nil), c.Security.AdminUserTypes...)
	out.Security.AllowedEmailDomains = append([]string(nil), c.Security.AllowedEmailDomains...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
