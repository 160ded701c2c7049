// Package handler is the gin HTTP adapter of the auth service.
//
// Routes:
//
//	POST /login     correo, contrasena, tipousuario headers (or JSON body) -> 201 tokens + usuarioID
//	POST /refresh   refresh_token header (or JSON body)                    -> 201 tokens
//	GET  /validate  Authorization bearer, token header or ?token=          -> 200 true|false
//	POST /logout    access token as for /validate, optional refresh_token  -> 204
//	POST /unlock    {"correo"} (administrators)                            -> 200
//	GET  /attempts  ?correo= (administrators)                              -> 200 failed-attempt count
//	GET  /health                                                           -> 200 | 503
//	GET  /metrics   when configured
//
// Engine errors become status codes here and nowhere else (see [StatusOf]).
// Response bodies carry a fixed message per error kind; causes are only logged.
package handler
