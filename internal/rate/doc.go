// Package rate provides Redis-backed fixed-window throttles that sit in front of
// the lockout counter: failed logins per client IP and refresh calls per user.
//
// # Window semantics
//
// Fixed-window counters: one script runs INCR and sets PEXPIRE on the first hit. Key prefixes:
//   - rl:login_ip: failed logins per client IP
//   - rl:refresh:  refresh calls per user
//
// Both throttles are off unless enabled in [Config].
//
// # What this package must NOT do
//
//   - Block accounts (that is the lockout counter in internal/limiters).
//   - Be imported outside the carnet module.
package rate
