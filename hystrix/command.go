package hystrix

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/engine"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/internal/nilcheck"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"go.opentelemetry.io/otel/trace"
)

// Work is a unit of work producing a T. ctx is the worker context with the
// submitter's logging context and span restored.
type Work[T any] interface {
	Run(ctx context.Context) (T, error)
}

// WorkFunc adapts a function to Work.
type WorkFunc[T any] func(ctx context.Context) (T, error)

// Run calls f(ctx).
func (f WorkFunc[T]) Run(ctx context.Context) (T, error) {
	return f(ctx)
}

// Result is the outcome delivered by Command.Queue.
type Result[T any] struct {
	Value T
	Err   error
}

// GenericCommand binds an engine setter and a trace id. It is reusable: every
// Executor call captures a fresh context and returns a new single-shot Command.
type GenericCommand[T any] struct {
	setter  engine.Setter
	traceID string
	opts    options
}

// NewGenericCommand validates setter and traceID. A blank trace id is
// rejected; use NewGenericCommandFromContext to derive one.
func NewGenericCommand[T any](setter engine.Setter, traceID string, opts ...Option) (*GenericCommand[T], error) {
	if err := setter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if strings.TrimSpace(traceID) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyTraceID)
	}

	o := options{scopes: opentelemetry.NewScopeManager()}

	for _, opt := range opts {
		opt(&o)
	}

	if o.engineSet && nilcheck.Interface(o.engine) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrNilEngine)
	}

	if !o.engineSet {
		shared, err := sharedEngine()
		if err != nil {
			return nil, err
		}

		o.engine = shared
	}

	return &GenericCommand[T]{setter: setter, traceID: traceID, opts: o}, nil
}

// NewGenericCommandFromContext uses the correlation id of ctx as trace id,
// generating one when ctx carries none.
func NewGenericCommandFromContext[T any](ctx context.Context, setter engine.Setter, opts ...Option) (*GenericCommand[T], error) {
	return NewGenericCommand[T](setter, ResolveTraceID(ctx), opts...)
}

// TraceID returns the id written under constant.MDCTraceID while work runs.
func (g *GenericCommand[T]) TraceID() string {
	return g.traceID
}

// Setter returns the engine configuration, unmodified.
func (g *GenericCommand[T]) Setter() engine.Setter {
	return g.setter
}

// Executor captures the logging context and active span of ctx and binds them
// to work. Nothing runs until the returned Command is executed.
func (g *GenericCommand[T]) Executor(ctx context.Context, work Work[T]) (*Command[T], error) {
	if nilcheck.Interface(work) {
		return nil, ErrNilWork
	}

	logger := g.opts.logger
	if logger == nil {
		logger = NewLoggerFromContext(ctx)
	}

	return &Command[T]{
		setter:   g.setter,
		traceID:  g.traceID,
		engine:   g.opts.engine,
		scopes:   g.opts.scopes,
		logger:   logger,
		snapshot: mdc.Capture(ctx),
		span:     g.opts.scopes.ActiveSpan(ctx),
		work:     work,
	}, nil
}

// Command is one submission of a unit of work. It runs at most once.
type Command[T any] struct {
	setter   engine.Setter
	traceID  string
	engine   engine.Engine
	scopes   opentelemetry.ScopeManager
	logger   log.Logger
	snapshot mdc.Map
	span     trace.Span
	work     Work[T]
	executed atomic.Bool
}

// Callable returns the wrapped body for engines driven directly. It shares the
// single-shot guard with Execute and Queue: only the first run of any of them
// reaches the work, later ones return ErrAlreadyExecuted.
func (c *Command[T]) Callable() engine.Callable {
	return func(ctx context.Context) (any, error) {
		if !c.executed.CompareAndSwap(false, true) {
			return nil, ErrAlreadyExecuted
		}

		return c.call(ctx)
	}
}

func (c *Command[T]) call(ctx context.Context) (any, error) {
	ctx, store := mdc.Ensure(ctx)

	// A nil snapshot clears whatever an earlier command left on a reused store.
	store.SetContextMap(c.snapshot)

	var scope opentelemetry.Scope
	if c.span != nil {
		ctx, scope = c.scopes.Activate(ctx, c.span)
	}

	defer c.release(ctx, store, scope)

	store.Put(constant.MDCTraceID, c.traceID)

	value, err := c.work.Run(ctx)

	return value, err
}

// release deactivates the span and drops TRACE-ID. A scope that fails to
// close is logged; TRACE-ID is removed even if Close panics.
func (c *Command[T]) release(ctx context.Context, store *mdc.Store, scope opentelemetry.Scope) {
	defer store.Remove(constant.MDCTraceID)

	if scope == nil {
		return
	}

	if err := scope.Close(); err != nil {
		log.SafeError(c.logger, ctx, "failed to close span scope", err, false)
	}
}

// Execute submits the command to the engine and waits for its outcome. Errors
// returned by the work reach the caller unchanged.
func (c *Command[T]) Execute(ctx context.Context) (T, error) {
	var zero T

	if !c.executed.CompareAndSwap(false, true) {
		return zero, ErrAlreadyExecuted
	}

	value, err := c.engine.Run(ctx, c.setter, c.call)
	if err != nil {
		return zero, err
	}

	if value == nil {
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, value, zero)
	}

	return typed, nil
}

// Queue executes the command on a new goroutine. The channel delivers exactly
// one Result and is then closed.
func (c *Command[T]) Queue(ctx context.Context) <-chan Result[T] {
	out := make(chan Result[T], 1)

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				runtime.HandlePanicValue(ctx, c.logger, r, "hystrix", "command_queue")

				out <- Result[T]{Err: runtime.PanicError(r)}
			}
		}()

		value, err := c.Execute(ctx)
		out <- Result[T]{Value: value, Err: err}
	}()

	return out
}

// Execute builds a command and runs work once.
func Execute[T any](ctx context.Context, setter engine.Setter, traceID string, work Work[T], opts ...Option) (T, error) {
	var zero T

	cmd, err := NewGenericCommand[T](setter, traceID, opts...)
	if err != nil {
		return zero, err
	}

	exec, err := cmd.Executor(ctx, work)
	if err != nil {
		return zero, err
	}

	return exec.Execute(ctx)
}
