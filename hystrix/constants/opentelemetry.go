package constant

// TelemetrySDKName identifies this module in OTEL telemetry resource attributes.
const TelemetrySDKName = "hystrix-function-wrapper/opentelemetry"

// MaxMetricLabelLength is the maximum length for metric labels to prevent cardinality explosion.
// Used by runtime and engine packages for label sanitization.
const MaxMetricLabelLength = 64

// Telemetry attribute key prefixes.
const (
	// AttrPrefixCommand is the prefix for command execution attributes.
	AttrPrefixCommand = "hystrix.command."
	// AttrPrefixPanic is the prefix for panic event attributes.
	AttrPrefixPanic = "panic."
)

// Telemetry attribute keys for command execution.
const (
	// AttrCommandGroup is the attribute key for the command group (bulkhead/breaker name).
	AttrCommandGroup = AttrPrefixCommand + "group"
	// AttrCommandKey is the attribute key for the command name.
	AttrCommandKey = AttrPrefixCommand + "key"
	// AttrCommandOutcome is the attribute key for the execution outcome.
	AttrCommandOutcome = AttrPrefixCommand + "outcome"
)

// Command outcomes used as values for AttrCommandOutcome.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeOpen     = "short_circuited"
	OutcomeFallback = "fallback"
)

// Telemetry metric names.
const (
	// MetricPanicRecoveredTotal is the counter metric for recovered panics.
	MetricPanicRecoveredTotal = "panic_recovered_total"
	// MetricCommandExecutionsTotal counts command executions by outcome.
	MetricCommandExecutionsTotal = "hystrix_command_executions_total"
	// MetricCommandLatency is the histogram of command run time in milliseconds.
	MetricCommandLatency = "hystrix_command_latency_ms"
	// MetricBulkheadInFlight is the gauge of callables running in a bulkhead.
	MetricBulkheadInFlight = "hystrix_bulkhead_in_flight"
)

// Telemetry event names.
const (
	// EventPanicRecovered is the span event name for recovered panics.
	EventPanicRecovered = "panic.recovered"
	// EventFallback is the span event name emitted when a fallback served the result.
	EventFallback = "hystrix.fallback"
)

// SanitizeMetricLabel truncates a label value to MaxMetricLabelLength
// to prevent metric cardinality explosion in OTEL backends.
func SanitizeMetricLabel(value string) string {
	if len(value) > MaxMetricLabelLength {
		return value[:MaxMetricLabelLength]
	}

	return value
}
