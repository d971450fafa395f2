package opentelemetry

import (
	"context"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// AttrCorrelationID is the span attribute holding the command correlation id.
const AttrCorrelationID = "hystrix.trace_id"

// CorrelationSpanProcessor copies the command correlation id from the logging
// context into every span started while a wrapped command runs, so spans and
// log records can be joined on it.
type CorrelationSpanProcessor struct{}

func (CorrelationSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if id, ok := mdc.FromContext(ctx).Get(constant.MDCTraceID); ok && id != "" {
		s.SetAttributes(attribute.String(AttrCorrelationID, id))
	}
}

func (CorrelationSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (CorrelationSpanProcessor) Shutdown(context.Context) error { return nil }

func (CorrelationSpanProcessor) ForceFlush(context.Context) error { return nil }
