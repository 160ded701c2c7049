// Package jwt issues and verifies the HS256 access and refresh tokens used by the
// carnet auth service.
//
// Both token kinds share one claim set ([Claims]): subject (user identity), email,
// user-type name, a random jti and a typ claim that keeps an access token from
// being redeemed as a refresh token and the other way around.
//
// # What this package must NOT do
//
//   - Persist tokens or consult the blacklist; that belongs to the session store.
//   - Import the carnet root package.
package jwt
