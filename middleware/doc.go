// Package middleware holds the gateway guard: a per-request filter that asks a
// [carnet.TokenValidator] whether the caller's bearer token is acceptable before
// the request reaches a protected handler.
//
// [Guard] serves plain net/http handlers (the gateway's reverse proxies);
// [GinGuard] and [GinClaims] serve gin routers. A missing token is answered with
// 401 "token missing" and a rejected one with 401 "invalid token". Validators
// collapse every fault to false, so the guard never admits a request on error.
//
// The package makes no authentication decision of its own.
package middleware
