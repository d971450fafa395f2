// Package metrics wraps an OpenTelemetry meter with a cached instrument factory
// and the command-execution metrics recorded by the engine.
package metrics
