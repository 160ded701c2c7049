// Package carnet is the authentication core of the carnet digital ID platform:
// login with progressive lockout, HS256 access/refresh tokens, single-use
// refresh rotation, access-token validation and logout blacklisting.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// carnet is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([UserProvider], [CatalogProvider], [TokenValidator])
// and value types. Flow orchestration, lockout counters, rate limiting and audit
// dispatch live under internal/ and are never exported. Credential records are
// owned by the user service and are only read and updated through [UserProvider].
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Choose HTTP status codes; adapters map [KindOf] results at their boundary.
//   - Import any sub-package that re-imports carnet (no import cycles).
//
// # Failure model
//
// Login and refresh failures caused by the caller collapse into a handful of
// sentinels ([ErrInvalidCredentials], [ErrRefreshInvalid]); the concrete reason is
// logged and written to the bitácora, never returned. Validate never fails: any
// fault is reported as false.
package carnet
