package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/carnet-digital/carnet"
)

const (
	// MessageTokenMissing is the 401 body message when no bearer token was sent.
	MessageTokenMissing = "token missing"
	// MessageTokenInvalid is the 401 body message when the validator said no.
	MessageTokenInvalid = "invalid token"
)

type tokenContextKey struct{}

// TokenFromContext returns the bearer token admitted by [Guard].
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

// Guard admits a request only when v accepts its bearer token.
func Guard(v carnet.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, MessageTokenMissing)
				return
			}
			if v == nil || !v.Validate(r.Context(), token) {
				writeUnauthorized(w, MessageTokenInvalid)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// RequestToken looks for an access token in the Authorization header, then the
// "token" header, then the "token" query parameter.
func RequestToken(r *http.Request) string {
	if token, ok := BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if token := strings.TrimSpace(r.Header.Get("Token")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Status: http.StatusUnauthorized, Message: message})
}
