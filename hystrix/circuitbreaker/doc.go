// Package circuitbreaker provides named circuit breakers backed by sony/gobreaker
// plus health-check-driven recovery.
//
// Use NewManager to create and manage per-group breakers, then run calls through
// Manager.Execute so failures are tracked consistently across callers. The
// engine package creates one breaker per command group.
package circuitbreaker
