// Package client holds the HTTP collaborators of the auth service: the user
// service ([UserClient], plus [BitacoraSink] for the activity log), the catalog
// service ([CatalogClient]) and, for gateways, the auth service itself
// ([AuthClient]).
//
// Every client translates transport failures and 5xx answers into
// carnet.ErrDownstreamUnavailable and 404 into carnet.ErrNotFound. Response
// bodies are never copied into errors. Calls can be put behind a circuit
// breaker with [WithBreaker].
package client
