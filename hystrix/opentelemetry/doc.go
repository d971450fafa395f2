// Package opentelemetry provides the tracing side of context propagation:
// a ScopeManager that re-activates a captured span on another goroutine's
// context without owning it, telemetry bootstrap, and span helpers.
//
// InitializeTelemetryWithError builds OTLP providers and can run in disabled
// mode for local/dev environments while preserving API compatibility.
package opentelemetry
