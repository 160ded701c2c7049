package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/carnet-digital/carnet/client"
	"github.com/carnet-digital/carnet/middleware"
	"github.com/sirupsen/logrus"
)

// Route sends requests under Prefix to Upstream. Non-public routes go through
// the guard first.
type Route struct {
	Prefix      string
	Upstream    string
	Public      bool
	StripPrefix bool
}

// Option configures a Gateway.
type Option func(*options)

type options struct {
	logger  logrus.FieldLogger
	breaker client.BreakerConfig
	timeout time.Duration
}

// WithLogger sets the logger for proxy failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithBreaker tunes the per-upstream circuit breakers.
func WithBreaker(cfg client.BreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithUpstreamTimeout bounds the wait for upstream response headers; 30s by default.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

type route struct {
	Route
	handler http.Handler
	breaker *client.BreakerTransport
}

// Gateway is the public entry point: it routes by path prefix and guards
// protected prefixes with a [carnet.TokenValidator].
type Gateway struct {
	routes []*route
	logger logrus.FieldLogger
}

// New validates routes and builds one reverse proxy per route. Routes sharing
// an upstream share its circuit breaker.
func New(routes []Route, validator carnet.TokenValidator, opts ...Option) (*Gateway, error) {
	o := options{breaker: client.DefaultBreakerConfig(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}
	if len(routes) == 0 {
		return nil, errors.New("gateway: no routes")
	}

	g := &Gateway{logger: o.logger}
	guard := middleware.Guard(validator)
	breakers := map[string]*client.BreakerTransport{}
	seen := map[string]bool{}

	for _, r := range routes {
		r.Prefix = "/" + strings.Trim(r.Prefix, "/")
		if r.Prefix == "/" {
			return nil, fmt.Errorf("gateway: route %q: prefix must not be the root", r.Upstream)
		}
		if seen[r.Prefix] {
			return nil, fmt.Errorf("gateway: duplicate prefix %s", r.Prefix)
		}
		seen[r.Prefix] = true

		target, err := url.Parse(r.Upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway: route %s: invalid upstream %q", r.Prefix, r.Upstream)
		}

		bt, ok := breakers[target.Host]
		if !ok {
			base := http.DefaultTransport.(*http.Transport).Clone()
			base.ResponseHeaderTimeout = o.timeout
			bt = client.NewBreakerTransport(target.Host, base, o.breaker)
			breakers[target.Host] = bt
		}

		rt := &route{Route: r, breaker: bt}
		var h http.Handler = g.proxy(rt, target)
		if !r.Public {
			h = guard(h)
		}
		rt.handler = h
		g.routes = append(g.routes, rt)
	}

	// longest prefix first
	sort.Slice(g.routes, func(i, j int) bool {
		return len(g.routes[i].Prefix) > len(g.routes[j].Prefix)
	})
	return g, nil
}

func (g *Gateway) proxy(rt *route, target *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if rt.StripPrefix {
				p := strings.TrimPrefix(pr.In.URL.Path, rt.Prefix)
				if p == "" {
					p = "/"
				}
				pr.Out.URL.Path = p
				pr.Out.URL.RawPath = ""
			}
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: rt.breaker,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			status := http.StatusBadGateway
			if errors.Is(err, client.ErrCircuitOpen) {
				status = http.StatusServiceUnavailable
			}
			g.logger.WithError(err).WithFields(logrus.Fields{
				"prefix":   rt.Prefix,
				"upstream": target.Host,
				"status":   status,
			}).Warn("upstream failed")
			writeJSON(w, status, "service unavailable")
		},
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"status":"ok"}`)
		return
	}
	for _, rt := range g.routes {
		if r.URL.Path == rt.Prefix || strings.HasPrefix(r.URL.Path, rt.Prefix+"/") {
			rt.handler.ServeHTTP(w, r)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, "not found")
}

// Routes returns the configured routes, longest prefix first.
func (g *Gateway) Routes() []Route {
	out := make([]Route, 0, len(g.routes))
	for _, rt := range g.routes {
		out = append(out, rt.Route)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{status, message})
}
