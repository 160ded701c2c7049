// Package gateway is the API gateway in front of the auth, user and catalog
// services.
//
// Requests are matched by path prefix (longest first) and forwarded through an
// httputil.ReverseProxy. Protected prefixes are wrapped in [middleware.Guard],
// which asks the auth service (via client.AuthClient) whether the bearer token is
// valid. Each upstream host has its own circuit breaker; while it is open the
// gateway answers 503 without contacting the upstream.
package gateway
