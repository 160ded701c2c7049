package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Service is the part of [carnet.Engine] the HTTP adapter drives.
type Service interface {
	Login(ctx context.Context, req carnet.LoginRequest) (*carnet.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*carnet.TokenPair, error)
	Validate(ctx context.Context, token string) bool
	ValidateClaims(ctx context.Context, token string) (*carnet.Claims, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	UnlockAccount(ctx context.Context, email string) error
	FailedAttempts(ctx context.Context, email string) (int, error)
	IsAdmin(claims *carnet.Claims) bool
	Ping(ctx context.Context) (time.Duration, error)
}

var _ Service = (*carnet.Engine)(nil)

// Handler serves the auth service routes.
type Handler struct {
	svc     Service
	logger  logrus.FieldLogger
	metrics http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics mounts m at GET /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// New returns a Handler over svc.
func New(svc Service, opts ...Option) *Handler {
	l := logrus.New()
	l.SetOutput(io.Discard)
	h := &Handler{svc: svc, logger: l}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds a gin engine with the request middleware and every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestContext(), AccessLog(h.logger))
	h.Register(r)
	return r
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.GET("/validate", h.Validate)
	r.POST("/logout", h.Logout)
	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	admin := r.Group("/", middleware.GinClaims(h.svc), middleware.GinRequire(h.svc.IsAdmin))
	admin.POST("/unlock", h.Unlock)
	admin.GET("/attempts", h.Attempts)
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	req, err := parseLogin(c.Request)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), carnet.LoginRequest{
		Email:    req.Correo,
		Password: req.Contrasena,
		UserType: req.TipoUsuario,
	})
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(pair, true))
}

// Refresh handles POST /refresh.
func (h *Handler) Refresh(c *gin.Context) {
	req, err := parseRefresh(c.Request)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(pair, false))
}

// Validate handles GET /validate. It always answers 200 with a JSON boolean.
func (h *Handler) Validate(c *gin.Context) {
	token := middleware.RequestToken(c.Request)
	c.JSON(http.StatusOK, token != "" && h.svc.Validate(c.Request.Context(), token))
}

// Logout handles POST /logout.
func (h *Handler) Logout(c *gin.Context) {
	req, err := parseLogout(c.Request, middleware.RequestToken(c.Request))
	if err != nil {
		h.fail(c, "logout", err)
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.AccessToken, req.RefreshToken); err != nil {
		h.fail(c, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unlock handles POST /unlock for administrators.
func (h *Handler) Unlock(c *gin.Context) {
	req, err := parseUnlock(c.Request)
	if err != nil {
		h.fail(c, "unlock", err)
		return
	}
	if err := h.svc.UnlockAccount(c.Request.Context(), req.Correo); err != nil {
		h.fail(c, "unlock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": "account unlocked"})
}

// Attempts handles GET /attempts?correo= for administrators.
func (h *Handler) Attempts(c *gin.Context) {
	req := unlockRequest{Correo: c.Query("correo")}
	if err := check(&req); err != nil {
		h.fail(c, "attempts", err)
		return
	}
	n, err := h.svc.FailedAttempts(c.Request.Context(), req.Correo)
	if err != nil {
		h.fail(c, "attempts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correo": req.Correo, "intentos_fallidos": n})
}

// Health handles GET /health by pinging the session store.
func (h *Handler) Health(c *gin.Context) {
	rtt, err := h.svc.Ping(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis_rtt_ms": rtt.Milliseconds()})
}
