// Package backoff computes delays between repeated attempts: exponential
// growth with a ceiling, spread by jitter so that many callers do not retry in
// lockstep. The circuit breaker health checker uses it to space out probes of
// a dependency that keeps failing.
package backoff
