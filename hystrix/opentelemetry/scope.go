package opentelemetry

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// ErrScopeAlreadyClosed is returned by Scope.Close after the first call.
var ErrScopeAlreadyClosed = errors.New("span scope already closed")

// Scope represents "this span is the current one" on a context. Closing it
// deactivates the span; it never ends the span.
type Scope interface {
	Close() error
}

// ScopeManager reads and activates spans on a context.
type ScopeManager interface {
	// ActiveSpan returns the span active on ctx, or nil when there is none.
	ActiveSpan(ctx context.Context) trace.Span
	// Activate makes span current on the returned context until the scope is closed.
	Activate(ctx context.Context, span trace.Span) (context.Context, Scope)
}

// ContextScopeManager is the OpenTelemetry ScopeManager. A span is carried by
// context.Context, so activation derives a context and deactivation drops it.
type ContextScopeManager struct{}

var _ ScopeManager = ContextScopeManager{}

// NewScopeManager returns the default OpenTelemetry scope manager.
//
//nolint:ireturn
func NewScopeManager() ScopeManager {
	return ContextScopeManager{}
}

// ActiveSpan returns the span of ctx when it has a valid span context.
//
//nolint:ireturn
func (ContextScopeManager) ActiveSpan(ctx context.Context) trace.Span {
	if ctx == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}

	return span
}

// Activate returns a context whose current span is span.
//
//nolint:ireturn
func (ContextScopeManager) Activate(ctx context.Context, span trace.Span) (context.Context, Scope) {
	return trace.ContextWithSpan(ctx, span), &contextScope{}
}

type contextScope struct {
	closed atomic.Bool
}

func (s *contextScope) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrScopeAlreadyClosed
	}

	return nil
}
