// Package engine runs callables under a circuit breaker, a bulkhead and a
// timeout.
//
// Engine is the submit-and-wait contract the hystrix command package depends
// on. BreakerEngine composes a sony/gobreaker breaker per command group with a
// fixed set of long-lived workers. Each worker owns one logging context store
// (see package mdc) that it reuses for every callable it runs, so callables
// must leave the store the way they found it. InlineEngine runs callables on
// the calling goroutine.
package engine
