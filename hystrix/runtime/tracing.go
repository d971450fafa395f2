package runtime

import (
	"context"
	"fmt"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PanicSpanEventName is the span event recorded for a recovered panic.
const PanicSpanEventName = constant.EventPanicRecovered

const maxStackAttrLen = 4096

// RecordPanicToSpan records a recovered panic on the span of ctx.
func RecordPanicToSpan(ctx context.Context, panicValue any, stack []byte, goroutineName string) {
	RecordPanicToSpanWithComponent(ctx, panicValue, stack, "", goroutineName)
}

// RecordPanicToSpanWithComponent records a recovered panic on the span of ctx
// and marks the span as failed. Non-recording spans are left alone.
func RecordPanicToSpanWithComponent(ctx context.Context, panicValue any, stack []byte, component, goroutineName string) {
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	stackStr := string(stack)
	if len(stackStr) > maxStackAttrLen {
		stackStr = stackStr[:maxStackAttrLen] + "\n...[truncated]"
	}

	attrs := []attribute.KeyValue{
		attribute.String(constant.AttrPrefixPanic+"value", fmt.Sprintf("%v", panicValue)),
		attribute.String(constant.AttrPrefixPanic+"goroutine_name", goroutineName),
		attribute.String(constant.AttrPrefixPanic+"stack", stackStr),
	}

	if component != "" {
		attrs = append(attrs, attribute.String(constant.AttrPrefixPanic+"component", component))
	}

	span.AddEvent(PanicSpanEventName, trace.WithAttributes(attrs...))
	span.RecordError(PanicError(panicValue))
	span.SetStatus(codes.Error, "panic recovered in "+goroutineName)
}
