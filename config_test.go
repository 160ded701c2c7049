package carnet

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing access secret",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = nil
			},
			wantValid: false,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "zero refresh ttl",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = 0
			},
			wantValid: false,
		},
		{
			name: "lockout threshold zero",
			mutate: func(c *Config) {
				c.Lockout.Threshold = 0
			},
			wantValid: false,
		},
		{
			name: "lockout disabled ignores threshold",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.Threshold = 0
			},
			wantValid: true,
		},
		{
			name: "blocked state unnamed without code",
			mutate: func(c *Config) {
				c.Lockout.BlockedStateName = ""
			},
			wantValid: false,
		},
		{
			name: "blocked state by code",
			mutate: func(c *Config) {
				c.Lockout.BlockedStateName = ""
				c.Lockout.BlockedStateCode = 3
			},
			wantValid: true,
		},
		{
			name: "ip throttle without budget",
			mutate: func(c *Config) {
				c.Security.EnableIPThrottle = true
				c.Security.MaxLoginAttemptsPerIP = 0
			},
			wantValid: false,
		},
		{
			name: "email domain with at sign",
			mutate: func(c *Config) {
				c.Security.AllowedEmailDomains = []string{"@cuc.cr"}
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "timeout zero",
			mutate: func(c *Config) {
				c.Timeout = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigMatchesServiceDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 900*time.Second {
		t.Fatalf("unexpected token lifetimes %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Lockout.Threshold != 3 {
		t.Fatalf("expected lockout threshold 3, got %d", cfg.Lockout.Threshold)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("defaults without a secret must not validate")
	}
}

func TestCloneConfigDoesNotAlias(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedEmailDomains = []string{"cuc.cr"}
	clone := cloneConfig(cfg)

	cfg.JWT.AccessSecret[0] = 'X'
	cfg.Security.AdminUserTypes[0] = "estudiante"
	cfg.Security.AllowedEmailDomains[0] = "gmail.com"

	if clone.JWT.AccessSecret[0] == 'X' {
		t.Fatalf("secret aliased")
	}
	if clone.Security.AdminUserTypes[0] != "administrador" || clone.Security.AllowedEmailDomains[0] != "cuc.cr" {
		t.Fatalf("slices aliased: %+v", clone.Security)
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatalf("expected error without redis")
	}

	env := newTestEnv(t, nil)
	b := New().WithConfig(testConfig()).WithRedis(env.rdb)
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected error without user provider")
	}
	b = New().WithConfig(testConfig()).WithRedis(env.rdb).WithUserProvider(env.users)
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected error without catalog provider")
	}

	b = New().WithConfig(testConfig()).WithRedis(env.rdb).WithUserProvider(env.users).WithCatalogProvider(env.catalog)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected reuse of builder to fail")
	}
}
