package middleware

import (
	"context"
	"net/http"

	"github.com/carnet-digital/carnet"
	"github.com/gin-gonic/gin"
)

// Gin context keys set by the guards.
const (
	ContextToken  = "carnet.token"
	ContextClaims = "carnet.claims"
)

// ClaimsValidator is implemented by [carnet.Engine]; it is what [GinClaims]
// needs when handlers must know who the caller is.
type ClaimsValidator interface {
	ValidateClaims(ctx context.Context, token string) (*carnet.Claims, error)
}

// GinGuard is [Guard] for gin routers.
func GinGuard(v carnet.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, MessageTokenMissing)
			return
		}
		if v == nil || !v.Validate(c.Request.Context(), token) {
			abortUnauthorized(c, MessageTokenInvalid)
			return
		}

		c.Set(ContextToken, token)
		c.Next()
	}
}

// GinClaims guards like [GinGuard] and stores the verified claims under
// [ContextClaims].
func GinClaims(v ClaimsValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, MessageTokenMissing)
			return
		}
		if v == nil {
			abortUnauthorized(c, MessageTokenInvalid)
			return
		}
		claims, err := v.ValidateClaims(c.Request.Context(), token)
		if err != nil || claims == nil {
			abortUnauthorized(c, MessageTokenInvalid)
			return
		}

		c.Set(ContextToken, token)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// GinRequire rejects with 403 callers whose claims do not satisfy allow.
// It must run after [GinClaims].
func GinRequire(allow func(*carnet.Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromGin(c)
		if !ok {
			abortUnauthorized(c, MessageTokenInvalid)
			return
		}
		if allow == nil || !allow(claims) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Status: http.StatusForbidden, Message: "forbidden"})
			return
		}
		c.Next()
	}
}

// ClaimsFromGin returns the claims stored by [GinClaims].
func ClaimsFromGin(c *gin.Context) (*carnet.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*carnet.Claims)
	return claims, ok && claims != nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Status: http.StatusUnauthorized, Message: message})
}
