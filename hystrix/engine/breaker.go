package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/circuitbreaker"
	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry/metrics"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BreakerEngine runs each command group behind a circuit breaker and a
// bulkhead of long-lived workers.
type BreakerEngine struct {
	manager   circuitbreaker.Manager
	metrics   *metrics.MetricsFactory
	logger    log.Logger
	mu        sync.Mutex
	bulkheads map[string]*bulkhead
	closed    bool

	countPanics bool
}

var _ Engine = (*BreakerEngine)(nil)

// Option configures a BreakerEngine.
type Option func(*BreakerEngine)

// WithLogger sets the logger for breaker transitions, panics and fallbacks.
func WithLogger(logger log.Logger) Option {
	return func(e *BreakerEngine) {
		e.logger = log.OrNop(logger)
	}
}

// WithMetricsFactory records command outcomes, latency and bulkhead usage.
// It also enables the process-wide recovered panic counter.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(e *BreakerEngine) {
		if factory != nil {
			e.metrics = factory
			e.countPanics = true
		}
	}
}

// WithManager shares a circuit breaker manager, for example one watched by a
// circuitbreaker.HealthChecker.
func WithManager(manager circuitbreaker.Manager) Option {
	return func(e *BreakerEngine) {
		e.manager = manager
	}
}

// NewBreakerEngine creates an engine. Bulkheads start lazily, on the first
// command of each group.
func NewBreakerEngine(opts ...Option) (*BreakerEngine, error) {
	e := &BreakerEngine{
		metrics:   metrics.NewNopFactory(),
		logger:    log.NewNop(),
		bulkheads: make(map[string]*bulkhead),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.manager == nil {
		manager, err := circuitbreaker.NewManager(e.logger)
		if err != nil {
			return nil, err
		}

		e.manager = manager
	}

	if e.countPanics {
		runtime.InitPanicMetrics(e.metrics, e.logger)
	}

	return e, nil
}

// Run executes call through the breaker and bulkhead of setter.GroupKey. On
// failure the setter fallback, when present, decides the result.
func (e *BreakerEngine) Run(ctx context.Context, setter Setter, call Callable) (any, error) {
	if call == nil {
		return nil, ErrNilCallable
	}

	if err := setter.Validate(); err != nil {
		return nil, err
	}

	setter = setter.WithDefaults()

	if ctx == nil {
		ctx = context.Background()
	}

	bh, err := e.bulkhead(setter)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	value, err := e.manager.Execute(setter.GroupKey, func() (any, error) {
		return bh.submit(ctx, setter.Timeout, call)
	})

	e.metrics.RecordCommand(ctx, setter.GroupKey, setter.CommandKey, outcome(err), time.Since(start))

	if err == nil || setter.Fallback == nil {
		return value, err
	}

	return e.fallback(ctx, setter, err)
}

func (e *BreakerEngine) bulkhead(setter Setter) (*bulkhead, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	if bh, ok := e.bulkheads[setter.GroupKey]; ok {
		return bh, nil
	}

	if _, err := e.manager.GetOrCreate(setter.GroupKey, setter.Breaker); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetter, err)
	}

	bh := newBulkhead(setter.GroupKey, setter.MaxConcurrent, e.logger, e.metrics)
	e.bulkheads[setter.GroupKey] = bh

	e.logger.Log(context.Background(), log.LevelInfo, "bulkhead started",
		log.String("group", setter.GroupKey),
		log.Int("workers", setter.MaxConcurrent),
	)

	return bh, nil
}

func (e *BreakerEngine) fallback(ctx context.Context, setter Setter, cause error) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.HandlePanicValue(ctx, e.logger, r, "engine", "fallback")

			value, err = nil, fmt.Errorf("fallback: %w (cause: %w)", runtime.PanicError(r), cause)
		}
	}()

	opentelemetry.HandleSpanEvent(trace.SpanFromContext(ctx), constant.EventFallback,
		attribute.String(constant.AttrCommandGroup, setter.GroupKey),
		attribute.String(constant.AttrCommandKey, setter.CommandKey),
		attribute.String(constant.AttrCommandOutcome, outcome(cause)),
	)

	e.logger.Log(ctx, log.LevelDebug, "running fallback",
		log.String("group", setter.GroupKey),
		log.String("command", setter.CommandKey),
		log.Err(cause),
	)

	start := time.Now()

	value, err = setter.Fallback(ctx, cause)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w (cause: %w)", err, cause)
	}

	e.metrics.RecordCommand(ctx, setter.GroupKey, setter.CommandKey, constant.OutcomeFallback, time.Since(start))

	return value, nil
}

// Close stops every bulkhead. Commands still waiting get ErrEngineClosed.
func (e *BreakerEngine) Close() error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()

		return nil
	}

	e.closed = true
	bulkheads := make([]*bulkhead, 0, len(e.bulkheads))

	for _, bh := range e.bulkheads {
		bulkheads = append(bulkheads, bh)
	}

	e.mu.Unlock()

	var errs []error

	for _, bh := range bulkheads {
		if err := bh.close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return constant.OutcomeSuccess
	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return constant.OutcomeOpen
	case errors.Is(err, ErrRejected):
		return constant.OutcomeRejected
	case errors.Is(err, ErrTimeout):
		return constant.OutcomeTimeout
	default:
		return constant.OutcomeFailure
	}
}
