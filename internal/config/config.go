package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/client"
	"github.com/carnet-digital/carnet/jwt"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Config is the service configuration shared by the auth service and the gateway.
type Config struct {
	Server   Server
	Auth     Auth
	Redis    Redis
	Services Services
	Lockout  Lockout
	Security Security
	Audit    Audit
	Metrics  Metrics
	Logger   Logger
	Gateway  Gateway
	Breaker  client.BreakerConfig
}

// Server holds listen ports.
type Server struct {
	Host            string
	Port            int
	GatewayPort     int
	ShutdownTimeout time.Duration
}

// Auth holds token signing settings. Expiry strings accept "900", "5m" or "7d".
type Auth struct {
	JWTSecret        string
	JWTRefreshSecret string
	AccessExpiresIn  string
	RefreshExpiresIn string
	Issuer           string
	Leeway           time.Duration
}

// Redis holds the session store connection.
type Redis struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// Services holds collaborator base URLs.
type Services struct {
	AuthURL    string
	UserURL    string
	CatalogURL string
	Timeout    time.Duration
}

// Lockout mirrors carnet.LockoutConfig.
type Lockout struct {
	Enabled          bool
	Threshold        int
	Window           time.Duration
	ActiveStateName  string
	BlockedStateName string
	ActiveStateCode  int
	BlockedStateCode int
	StateCacheTTL    time.Duration
}

// Security mirrors carnet.SecurityConfig.
type Security struct {
	RevealAccountState    bool
	AdminUserTypes        []string
	AllowedEmailDomains   []string
	EnableIPThrottle      bool
	MaxLoginAttemptsPerIP int
	LoginIPCooldown       time.Duration
	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// Audit selects the bitácora sink: "logrus", "json" (stdout) or "http" (user service).
type Audit struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Sink       string
}

// Metrics toggles counters, the latency histogram and the OpenTelemetry bridge.
type Metrics struct {
	Enabled bool
	Latency bool
	OTel    bool
}

// Logger configures logrus.
type Logger struct {
	Level      string
	Format     string
	Output     string
	OutputFile string
}

// Route sends requests whose path starts with Prefix to Upstream.
type Route struct {
	Prefix      string `mapstructure:"prefix"`
	Upstream    string `mapstructure:"upstream"`
	Public      bool   `mapstructure:"public"`
	StripPrefix bool   `mapstructure:"strip_prefix"`
}

// Gateway holds the gateway route table.
type Gateway struct {
	Routes []Route
}

// legacyEnv lists the environment names the services were deployed with.
// They are consulted after the CARNET_* form of the same key.
var legacyEnv = map[string][]string{
	"server.port":             {"PORT"},
	"server.gateway_port":     {"API_GATEWAY_PORT"},
	"auth.jwt_secret":         {"JWT_SECRET"},
	"auth.jwt_refresh_secret": {"JWT_REFRESH_SECRET"},
	"auth.access_expires_in":  {"JWT_EXPIRES_IN"},
	"auth.refresh_expires_in": {"REFRESH_TOKEN_EXPIRES_IN"},
	"redis.url":               {"REDIS_URL"},
	"redis.host":              {"REDIS_HOST"},
	"redis.port":              {"REDIS_PORT"},
	"redis.password":          {"REDIS_PASSWORD"},
	"services.auth_url":       {"AUTH_SERVICE_URL"},
	"services.user_url":       {"USER_SERVICE_URL"},
	"services.catalog_url":    {"CATALOG_SERVICE_URL"},
	"services.timeout":        {"REQUEST_TIMEOUT"},
	"lockout.threshold":       {"LOCKOUT_THRESHOLD"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.gateway_port", 3000)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("auth.access_expires_in", "5m")
	v.SetDefault("auth.refresh_expires_in", "900")
	v.SetDefault("auth.issuer", "carnet-auth")
	v.SetDefault("auth.leeway", "0s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "carnet")

	v.SetDefault("services.auth_url", "http://localhost:3001")
	v.SetDefault("services.user_url", "http://localhost:3003")
	v.SetDefault("services.catalog_url", "http://localhost:3002")
	v.SetDefault("services.timeout", "5s")

	v.SetDefault("lockout.enabled", true)
	v.SetDefault("lockout.threshold", 3)
	v.SetDefault("lockout.window", "24h")
	v.SetDefault("lockout.active_state_name", "activo")
	v.SetDefault("lockout.blocked_state_name", "bloqueado")
	v.SetDefault("lockout.active_state_code", 1)
	v.SetDefault("lockout.blocked_state_code", 0)
	v.SetDefault("lockout.state_cache_ttl", "5m")

	v.SetDefault("security.reveal_account_state", false)
	v.SetDefault("security.admin_user_types", []string{"administrador"})
	v.SetDefault("security.allowed_email_domains", []string{})
	v.SetDefault("security.enable_ip_throttle", false)
	v.SetDefault("security.max_login_attempts_per_ip", 20)
	v.SetDefault("security.login_ip_cooldown", "15m")
	v.SetDefault("security.enable_refresh_throttle", false)
	v.SetDefault("security.max_refresh_attempts", 30)
	v.SetDefault("security.refresh_cooldown", "1m")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)
	v.SetDefault("audit.sink", "logrus")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency", true)
	v.SetDefault("metrics.otel", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.output_file", "")

	def := client.DefaultBreakerConfig()
	v.SetDefault("breaker.max_requests", def.MaxRequests)
	v.SetDefault("breaker.interval", def.Interval.String())
	v.SetDefault("breaker.timeout", def.Timeout.String())
	v.SetDefault("breaker.min_requests", def.MinRequests)
	v.SetDefault("breaker.failure_ratio", def.FailureRatio)
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CARNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{"CARNET_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Load reads path (YAML, JSON or TOML by extension) when given, otherwise an
// optional carnet.{yaml,json,toml} from the working directory or /etc/carnet,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("carnet")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/carnet")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			GatewayPort:     v.GetInt("server.gateway_port"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Auth: Auth{
			JWTSecret:        v.GetString("auth.jwt_secret"),
			JWTRefreshSecret: v.GetString("auth.jwt_refresh_secret"),
			AccessExpiresIn:  v.GetString("auth.access_expires_in"),
			RefreshExpiresIn: v.GetString("auth.refresh_expires_in"),
			Issuer:           v.GetString("auth.issuer"),
			Leeway:           v.GetDuration("auth.leeway"),
		},
		Redis: Redis{
			URL:      v.GetString("redis.url"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Services: Services{
			AuthURL:    v.GetString("services.auth_url"),
			UserURL:    v.GetString("services.user_url"),
			CatalogURL: v.GetString("services.catalog_url"),
			Timeout:    v.GetDuration("services.timeout"),
		},
		Lockout: Lockout{
			Enabled:          v.GetBool("lockout.enabled"),
			Threshold:        v.GetInt("lockout.threshold"),
			Window:           v.GetDuration("lockout.window"),
			ActiveStateName:  v.GetString("lockout.active_state_name"),
			BlockedStateName: v.GetString("lockout.blocked_state_name"),
			ActiveStateCode:  v.GetInt("lockout.active_state_code"),
			BlockedStateCode: v.GetInt("lockout.blocked_state_code"),
			StateCacheTTL:    v.GetDuration("lockout.state_cache_ttl"),
		},
		Security: Security{
			RevealAccountState:    v.GetBool("security.reveal_account_state"),
			AdminUserTypes:        v.GetStringSlice("security.admin_user_types"),
			AllowedEmailDomains:   v.GetStringSlice("security.allowed_email_domains"),
			EnableIPThrottle:      v.GetBool("security.enable_ip_throttle"),
			MaxLoginAttemptsPerIP: v.GetInt("security.max_login_attempts_per_ip"),
			LoginIPCooldown:       v.GetDuration("security.login_ip_cooldown"),
			EnableRefreshThrottle: v.GetBool("security.enable_refresh_throttle"),
			MaxRefreshAttempts:    v.GetInt("security.max_refresh_attempts"),
			RefreshCooldown:       v.GetDuration("security.refresh_cooldown"),
		},
		Audit: Audit{
			Enabled:    v.GetBool("audit.enabled"),
			BufferSize: v.GetInt("audit.buffer_size"),
			DropIfFull: v.GetBool("audit.drop_if_full"),
			Sink:       strings.ToLower(v.GetString("audit.sink")),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("metrics.enabled"),
			Latency: v.GetBool("metrics.latency"),
			OTel:    v.GetBool("metrics.otel"),
		},
		Logger: Logger{
			Level:      v.GetString("logger.level"),
			Format:     v.GetString("logger.format"),
			Output:     v.GetString("logger.output"),
			OutputFile: v.GetString("logger.output_file"),
		},
		Breaker: client.BreakerConfig{
			MaxRequests:  v.GetUint32("breaker.max_requests"),
			Interval:     v.GetDuration("breaker.interval"),
			Timeout:      v.GetDuration("breaker.timeout"),
			MinRequests:  v.GetUint32("breaker.min_requests"),
			FailureRatio: v.GetFloat64("breaker.failure_ratio"),
		},
	}

	if err := v.UnmarshalKey("gateway.routes", &cfg.Gateway.Routes); err != nil {
		return nil, fmt.Errorf("gateway.routes: %w", err)
	}
	if len(cfg.Gateway.Routes) == 0 {
		cfg.Gateway.Routes = DefaultRoutes(cfg.Services)
	}

	switch cfg.Audit.Sink {
	case "logrus", "json", "http":
	default:
		return nil, fmt.Errorf("audit.sink %q: want logrus, json or http", cfg.Audit.Sink)
	}

	return cfg, nil
}

// DefaultRoutes is the gateway table used when none is configured: /auth is
// public, every other prefix requires a valid access token.
func DefaultRoutes(s Services) []Route {
	return []Route{
		{Prefix: "/auth", Upstream: s.AuthURL, Public: true, StripPrefix: true},
		{Prefix: "/usuario", Upstream: s.UserURL},
		{Prefix: "/fotografia", Upstream: s.UserURL},
		{Prefix: "/qr", Upstream: s.UserURL},
		{Prefix: "/tiposusuario", Upstream: s.CatalogURL},
		{Prefix: "/tiposidentificacion", Upstream: s.CatalogURL},
		{Prefix: "/carreras", Upstream: s.CatalogURL},
		{Prefix: "/areas", Upstream: s.CatalogURL},
		{Prefix: "/estados", Upstream: s.CatalogURL},
	}
}

// EngineConfig converts the service settings into the engine configuration.
func (c *Config) EngineConfig() (carnet.Config, error) {
	access, err := jwt.ParseTTL(c.Auth.AccessExpiresIn)
	if err != nil {
		return carnet.Config{}, fmt.Errorf("auth.access_expires_in: %w", err)
	}
	refresh, err := jwt.ParseTTL(c.Auth.RefreshExpiresIn)
	if err != nil {
		return carnet.Config{}, fmt.Errorf("auth.refresh_expires_in: %w", err)
	}

	out := carnet.DefaultConfig()
	out.JWT = carnet.JWTConfig{
		AccessSecret:  []byte(c.Auth.JWTSecret),
		RefreshSecret: []byte(c.Auth.JWTRefreshSecret),
		AccessTTL:     access,
		RefreshTTL:    refresh,
		Issuer:        c.Auth.Issuer,
		Leeway:        c.Auth.Leeway,
	}
	out.Session.RedisPrefix = c.Redis.Prefix
	out.Lockout = carnet.LockoutConfig{
		Enabled:          c.Lockout.Enabled,
		Threshold:        c.Lockout.Threshold,
		Window:           c.Lockout.Window,
		ActiveStateName:  c.Lockout.ActiveStateName,
		BlockedStateName: c.Lockout.BlockedStateName,
		ActiveStateCode:  c.Lockout.ActiveStateCode,
		BlockedStateCode: c.Lockout.BlockedStateCode,
		StateCacheTTL:    c.Lockout.StateCacheTTL,
	}
	out.Security = carnet.SecurityConfig{
		RevealAccountState:    c.Security.RevealAccountState,
		AdminUserTypes:        c.Security.AdminUserTypes,
		AllowedEmailDomains:   c.Security.AllowedEmailDomains,
		EnableIPThrottle:      c.Security.EnableIPThrottle,
		MaxLoginAttemptsPerIP: c.Security.MaxLoginAttemptsPerIP,
		LoginIPCooldown:       c.Security.LoginIPCooldown,
		EnableRefreshThrottle: c.Security.EnableRefreshThrottle,
		MaxRefreshAttempts:    c.Security.MaxRefreshAttempts,
		RefreshCooldown:       c.Security.RefreshCooldown,
	}
	out.Audit = carnet.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	out.Metrics = carnet.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.Latency,
	}
	out.Timeout = c.Services.Timeout

	if err := out.Validate(); err != nil {
		return carnet.Config{}, err
	}
	return out, nil
}

// RedisOptions prefers redis.url and falls back to host and port.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL != "" {
		opts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis.url: %w", err)
		}
		return opts, nil
	}
	if c.Redis.Host == "" || c.Redis.Port <= 0 {
		return nil, errors.New("redis: url or host and port required")
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port)),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}, nil
}

// ListenAddr returns host:port for the given port.
func (c *Config) ListenAddr(port int) string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(port))
}
