// Package session provides the Redis-backed session store of the auth service:
// outstanding refresh-token records and the blacklist of revoked access tokens.
//
// # Expiry
//
// Every entry carries a Redis TTL. Refresh records live as long as the refresh
// token; blacklist entries live exactly as long as the revoked access token would
// have. Nothing in the application sweeps expired keys.
//
// # Single use
//
// [Store.RedeemRefresh] reads and deletes a refresh record in one Lua script, so
// among concurrent redeemers of the same token at most one succeeds.
//
// # What this package must NOT do
//
//   - Import carnet, jwt or password (no upward imports).
//   - Verify token signatures or decide whether a caller is authenticated.
//   - Use raw token values as Redis keys.
package session
