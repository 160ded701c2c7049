package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

var errEmptyData = errors.New("empty data")

// Option configures a collaborator client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	breaker    *BreakerConfig
	logger     logrus.FieldLogger
}

// WithHTTPClient replaces the underlying client. Timeout and breaker options are
// then ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds every call; 5s by default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBreaker puts a circuit breaker in front of the collaborator.
func WithBreaker(cfg BreakerConfig) Option {
	return func(o *options) { o.breaker = &cfg }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

type base struct {
	name    string
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

func newBase(name, baseURL string, opts []Option) base {
	o := options{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}

	hc := o.httpClient
	if hc == nil {
		var rt http.RoundTripper = http.DefaultTransport
		if o.breaker != nil {
			rt = NewBreakerTransport(name, rt, *o.breaker)
		}
		hc = &http.Client{Timeout: o.timeout, Transport: rt}
	}

	return base{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  o.logger.WithField("collaborator", name),
	}
}

// do sends a JSON request and decodes the answer into out. The status is
// translated into the engine's collaborator errors; bodies never leak into them.
func (b base) do(ctx context.Context, method, path string, in, out any, header http.Header) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.WithError(err).WithField("path", path).Warn("collaborator call failed")
		return fmt.Errorf("%w: %s %s: %v", carnet.ErrDownstreamUnavailable, b.name, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", carnet.ErrDownstreamUnavailable, b.name, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", b.name, path, carnet.ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		b.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("collaborator error status")
		return fmt.Errorf("%w: %s answered %d", carnet.ErrDownstreamUnavailable, b.name, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%s %s: unexpected status %d", b.name, path, resp.StatusCode)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		if errors.Is(err, errEmptyData) {
			return fmt.Errorf("%s %s: %w", b.name, path, carnet.ErrNotFound)
		}
		return fmt.Errorf("%s %s: decode: %w", b.name, path, err)
	}
	return nil
}

// decodeData accepts both bare payloads and the services' {status, message, data} envelope.
func decodeData(raw []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		if bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
			return errEmptyData
		}
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(raw, out)
}
