package client

import (
	"context"
	"net/http"

	"github.com/carnet-digital/carnet"
)

// AuthClient validates access tokens against a remote auth service. It is the
// [carnet.TokenValidator] used by gateways that do not embed an Engine.
type AuthClient struct {
	base
}

var _ carnet.TokenValidator = (*AuthClient)(nil)

// NewAuthClient returns a client for the auth service at baseURL.
func NewAuthClient(baseURL string, opts ...Option) *AuthClient {
	return &AuthClient{base: newBase("auth-service", baseURL, opts)}
}

// Validate calls GET /validate with the token header. Any failure is false.
func (c *AuthClient) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	var ok bool
	header := http.Header{"Token": []string{token}}
	if err := c.do(ctx, http.MethodGet, "/validate", nil, &ok, header); err != nil {
		c.logger.WithError(err).Debug("remote validate failed")
		return false
	}
	return ok
}
