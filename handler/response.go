package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	UsuarioID    string    `json:"usuarioID,omitempty"`
}

func newTokenResponse(pair *carnet.TokenPair, withUser bool) tokenResponse {
	out := tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
		ExpiresAt:    pair.ExpiresAt.UTC(),
	}
	if withUser {
		out.UsuarioID = pair.UserID
	}
	return out
}

// StatusOf maps an engine error onto the HTTP status returned to clients.
func StatusOf(err error) int {
	switch carnet.KindOf(err) {
	case carnet.KindValidation:
		return http.StatusBadRequest
	case carnet.KindUnauthorized:
		return http.StatusUnauthorized
	case carnet.KindForbidden:
		return http.StatusForbidden
	case carnet.KindNotFound:
		return http.StatusNotFound
	case carnet.KindRateLimited:
		return http.StatusTooManyRequests
	case carnet.KindDownstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never contains collaborator output or internal causes.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, carnet.ErrAccountLocked):
		return "account locked"
	case errors.Is(err, carnet.ErrAccountBlocked):
		return "account blocked"
	case errors.Is(err, carnet.ErrAccountInactive):
		return "account inactive"
	case errors.Is(err, carnet.ErrInvalidCredentials):
		return "incorrect credentials"
	case errors.Is(err, carnet.ErrRefreshInvalid):
		return "invalid refresh token"
	case errors.Is(err, carnet.ErrTokenInvalid), errors.Is(err, carnet.ErrTokenRevoked):
		return "invalid token"
	}

	switch carnet.KindOf(err) {
	case carnet.KindValidation:
		return "incomplete or invalid data"
	case carnet.KindUnauthorized:
		return "unauthorized"
	case carnet.KindForbidden:
		return "forbidden"
	case carnet.KindNotFound:
		return "not found"
	case carnet.KindRateLimited:
		return "too many requests"
	case carnet.KindDownstreamUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := StatusOf(err)
	body := errorResponse{Status: status, Message: publicMessage(err)}

	var verr *ValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Fields
	}

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"op":         op,
		"status":     status,
		"request_id": carnet.RequestIDFromContext(c.Request.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, body)
}
