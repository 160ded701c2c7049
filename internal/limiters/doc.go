// Package limiters provides the progressive lockout counter used by login.
//
// [LockoutLimiter] keeps one Redis counter per email. A single Lua script seeds
// the counter from the credential record when absent, increments it and sets the
// rolling window TTL, so concurrent failed logins never undercount.
//
// # What this package must NOT do
//
//   - Import carnet or any sibling internal package.
//   - Block accounts itself; the login flow decides what a reached threshold means.
package limiters
