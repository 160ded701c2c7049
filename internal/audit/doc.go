// Package audit carries bitácora events (logins, lockouts, refreshes, logouts
// and unlocks) from the engine to whatever sink the deployment configured.
//
// A [Dispatcher] buffers events and delivers them from a single goroutine, so
// a slow sink never holds up a login. When the buffer is full it either drops
// the event and counts it, or blocks the caller until ctx ends.
//
// The sinks here write to logrus, a JSON line stream or a channel. The sink
// that posts to the user service is client.BitacoraSink.
package audit
