package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned by [BreakerTransport] while its breaker refuses requests.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerConfig tunes a [BreakerTransport]. The breaker trips once at least
// MinRequests were seen in the current interval and the failure ratio reaches FailureRatio.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns the settings used for every upstream unless overridden.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  100,
		Interval:     5 * time.Second,
		Timeout:      3 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// BreakerTransport is an http.RoundTripper that counts transport errors and 5xx
// answers against a circuit breaker.
type BreakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream answered %d", e.resp.StatusCode)
}

// NewBreakerTransport wraps base (http.DefaultTransport when nil).
func NewBreakerTransport(name string, base http.RoundTripper, cfg BreakerConfig) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	def := DefaultBreakerConfig()
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
	})
	return &BreakerTransport{base: base, cb: cb}
}

// State returns the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// RoundTrip implements http.RoundTripper. A 5xx response counts as a failure
// but is still handed to the caller unchanged.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})

	var se *serverError
	switch {
	case errors.As(err, &se):
		return se.resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, t.cb.Name(), err)
	case err != nil:
		return nil, err
	}
	return out.(*http.Response), nil
}
