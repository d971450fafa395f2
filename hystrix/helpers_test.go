//go:build unit

package hystrix

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/engine"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"go.opentelemetry.io/otel/trace"
)

// workerEngine runs every callable on a new goroutine that uses one fixed
// store, like a single pooled worker.
type workerEngine struct {
	store *mdc.Store
	runs  atomic.Int32
}

func newWorkerEngine() *workerEngine {
	return &workerEngine{store: mdc.NewStore()}
}

func (e *workerEngine) Run(_ context.Context, _ engine.Setter, call engine.Callable) (any, error) {
	e.runs.Add(1)

	type outcome struct {
		value any
		err   error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: runtime.PanicError(r)}
			}
		}()

		value, err := call(mdc.WithStore(context.Background(), e.store))
		done <- outcome{value: value, err: err}
	}()

	out := <-done

	return out.value, out.err
}

// cancelingEngine cancels the worker context once the work has started and
// reports the cancellation without waiting for the callable to return.
type cancelingEngine struct {
	store    *mdc.Store
	started  chan struct{}
	finished chan struct{}
}

func newCancelingEngine() *cancelingEngine {
	return &cancelingEngine{
		store:    mdc.NewStore(),
		started:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (e *cancelingEngine) Run(_ context.Context, _ engine.Setter, call engine.Callable) (any, error) {
	ctx, cancel := context.WithCancel(mdc.WithStore(context.Background(), e.store))

	go func() {
		defer close(e.finished)

		_, _ = call(ctx)
	}()

	<-e.started
	cancel()

	return nil, ctx.Err()
}

type recordingScopes struct {
	opentelemetry.ContextScopeManager

	activations atomic.Int32
	closes      atomic.Int32
	closeErr    error
}

//nolint:ireturn
func (r *recordingScopes) Activate(ctx context.Context, span trace.Span) (context.Context, opentelemetry.Scope) {
	r.activations.Add(1)

	ctx, scope := r.ContextScopeManager.Activate(ctx, span)

	return ctx, &recordingScope{inner: scope, owner: r}
}

type recordingScope struct {
	inner opentelemetry.Scope
	owner *recordingScopes
}

func (s *recordingScope) Close() error {
	s.owner.closes.Add(1)

	if err := s.inner.Close(); err != nil {
		return err
	}

	return s.owner.closeErr
}

type panickingScopes struct {
	opentelemetry.ContextScopeManager
}

//nolint:ireturn
func (panickingScopes) Activate(ctx context.Context, span trace.Span) (context.Context, opentelemetry.Scope) {
	return trace.ContextWithSpan(ctx, span), panickingScope{}
}

type panickingScope struct{}

func (panickingScope) Close() error { panic(errors.New("scope exploded")) }
