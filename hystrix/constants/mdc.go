package constant

const (
	// MDCTraceID is the reserved logging-context key holding the correlation identifier
	// of a wrapped command. Application code must not write it.
	MDCTraceID = "TRACE-ID"
	// LogKeyTraceID is the field name used by log adapters for the OTel trace id.
	LogKeyTraceID = "trace_id"
	// LogKeySpanID is the field name used by log adapters for the OTel span id.
	LogKeySpanID = "span_id"
)

// IsReservedMDCKey reports whether key is owned by this module.
func IsReservedMDCKey(key string) bool {
	return key == MDCTraceID
}
