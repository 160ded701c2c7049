package carnet

import (
	"errors"
	"io"
	"time"

	internalaudit "github.com/carnet-digital/carnet/internal/audit"
	"github.com/carnet-digital/carnet/internal/limiters"
	"github.com/carnet-digital/carnet/internal/rate"
	"github.com/carnet-digital/carnet/jwt"
	"github.com/carnet-digital/carnet/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. Configure it during startup, call Build once
// and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserProvider
	catalog   CatalogProvider
	logger    logrus.FieldLogger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for refresh records, the blacklist and all counters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user collaborator.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.users = up
	return b
}

// WithCatalogProvider sets the catalog collaborator.
func (b *Builder) WithCatalogProvider(cp CatalogProvider) *Builder {
	b.catalog = cp
	return b
}

// WithLogger sets the logger. Without one, log output is discarded.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where bitácora events are delivered. Without one, events
// go to the logger through a [LogrusSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user provider required")
	}
	if b.catalog == nil {
		return nil, errors.New("catalog provider required")
	}

	logger := b.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewLogrusSink(logger)
	}

	engine := &Engine{
		config:       cfg,
		jwtManager:   jm,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		lockout: limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
			Enabled:   cfg.Lockout.Enabled,
			Threshold: cfg.Lockout.Threshold,
			Window:    cfg.Lockout.Window,
			Prefix:    cfg.Session.RedisPrefix,
		}),
		rateLimiter: rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttemptsPerIP,
			LoginCooldownDuration:   cfg.Security.LoginIPCooldown,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldown,
			Prefix:                  cfg.Session.RedisPrefix,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
		users:   b.users,
		catalog: b.catalog,
		logger:  logger,
		now:     now,
	}

	b.built = true

	return engine, nil
}
