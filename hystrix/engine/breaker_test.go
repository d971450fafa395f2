//go:build unit

package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/circuitbreaker"
	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry/metrics"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestEngine(t *testing.T, opts ...Option) *BreakerEngine {
	t.Helper()

	e, err := NewBreakerEngine(append([]Option{WithLogger(log.NewNop())}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	return e
}

func workerStore(t *testing.T, e *BreakerEngine, group string) *mdc.Store {
	t.Helper()

	e.mu.Lock()
	defer e.mu.Unlock()

	bh, ok := e.bulkheads[group]
	require.True(t, ok)
	require.Len(t, bh.stores, 1)

	return bh.stores[0]
}

func waitIdle(t *testing.T, e *BreakerEngine, group string) {
	t.Helper()

	e.mu.Lock()
	bh := e.bulkheads[group]
	e.mu.Unlock()

	require.NotNil(t, bh)
	require.Eventually(t, bh.idle, 2*time.Second, 5*time.Millisecond)
}

type ctxKey struct{}

func TestBreakerEngine_RunReturnsValue(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	value, err := e.Run(context.Background(), WithGroupKey("payments"), func(context.Context) (any, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestBreakerEngine_WorkerContextIsIsolated(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "caller")
	defer span.End()

	ctx, callerStore := mdc.Ensure(ctx)
	callerStore.Put("user", "42")
	ctx = context.WithValue(ctx, ctxKey{}, "request-scoped")

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	_, err := e.Run(ctx, WithGroupKey("payments").AndMaxConcurrent(1), func(ctx context.Context) (any, error) {
		store := mdc.FromContext(ctx)

		assert.NotNil(t, store)
		assert.NotSame(t, callerStore, store)
		assert.Nil(t, store.Snapshot())
		assert.False(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
		assert.Nil(t, ctx.Value(ctxKey{}))

		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)

		return nil, nil
	})

	require.NoError(t, err)
}

func TestBreakerEngine_WorkerKeepsOneStore(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	setter := WithGroupKey("payments").AndMaxConcurrent(1)

	stores := make([]*mdc.Store, 0, 2)

	for range 2 {
		_, err := e.Run(context.Background(), setter, func(ctx context.Context) (any, error) {
			stores = append(stores, mdc.FromContext(ctx))

			return nil, nil
		})
		require.NoError(t, err)
	}

	require.Len(t, stores, 2)
	assert.Same(t, stores[0], stores[1])
	assert.Same(t, workerStore(t, e, "payments"), stores[0])
}

func TestBreakerEngine_RejectsWhenBulkheadFull(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	setter := WithGroupKey("payments").AndMaxConcurrent(1).AndTimeout(5 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) {
			close(started)
			<-release

			return nil, nil
		})
		done <- err
	}()

	<-started

	called := false
	_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) {
		called = true

		return nil, nil
	})

	assert.ErrorIs(t, err, ErrRejected)
	assert.False(t, called)

	close(release)
	require.NoError(t, <-done)
}

func TestBreakerEngine_TimeoutLetsCallableCleanUp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	setter := WithGroupKey("payments").AndMaxConcurrent(1).AndTimeout(20 * time.Millisecond)

	var cleaned atomic.Bool

	_, err := e.Run(context.Background(), setter, func(ctx context.Context) (any, error) {
		_ = mdc.Put(ctx, "transient", "1")
		defer func() {
			_ = mdc.Remove(ctx, "transient")
			cleaned.Store(true)
		}()

		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)

		return nil, ctx.Err()
	})

	assert.ErrorIs(t, err, ErrTimeout)

	waitIdle(t, e, "payments")

	assert.True(t, cleaned.Load())
	assert.Equal(t, 0, workerStore(t, e, "payments").Len())
}

func TestBreakerEngine_CallerCancellation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})

	go func() {
		<-started
		cancel()
	}()

	_, err := e.Run(ctx, WithGroupKey("payments").AndTimeout(5*time.Second), func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)

	_, err = e.Run(ctx, WithGroupKey("payments"), func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakerEngine_OpenBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	setter := WithGroupKey("payments").AndBreakerConfig(circuitbreaker.Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
		FailureRatio:        1,
		MinRequests:         100,
	})

	boom := errors.New("boom")

	for range 2 {
		_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) { return nil, boom })
		assert.Same(t, boom, err)
	}

	called := false
	_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) {
		called = true

		return nil, nil
	})

	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.False(t, called)
	assert.Equal(t, constant.OutcomeOpen, outcome(err))
}

func TestBreakerEngine_Fallback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	boom := errors.New("boom")

	var cause error

	setter := WithGroupKey("payments").AndFallback(func(_ context.Context, err error) (any, error) {
		cause = err

		return "cached", nil
	})

	value, err := e.Run(context.Background(), setter, func(context.Context) (any, error) { return nil, boom })

	require.NoError(t, err)
	assert.Equal(t, "cached", value)
	assert.Same(t, boom, cause)
}

func TestBreakerEngine_FailedFallbackKeepsBothErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	boom := errors.New("boom")
	fallbackErr := errors.New("no cache")

	setter := WithGroupKey("payments").AndFallback(func(context.Context, error) (any, error) {
		return nil, fallbackErr
	})

	_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) { return nil, boom })

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, fallbackErr)
}

func TestBreakerEngine_PanicBecomesError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	setter := WithGroupKey("payments").AndMaxConcurrent(1)

	_, err := e.Run(context.Background(), setter, func(context.Context) (any, error) {
		panic("boom")
	})

	assert.ErrorIs(t, err, runtime.ErrPanic)

	value, err := e.Run(context.Background(), setter, func(context.Context) (any, error) { return "alive", nil })

	require.NoError(t, err)
	assert.Equal(t, "alive", value)
}

func TestBreakerEngine_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	_, err := e.Run(context.Background(), WithGroupKey("payments"), nil)
	assert.ErrorIs(t, err, ErrNilCallable)

	_, err = e.Run(context.Background(), Setter{}, func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInvalidSetter)
}

func TestBreakerEngine_Close(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	_, err := e.Run(context.Background(), WithGroupKey("payments"), func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Run(context.Background(), WithGroupKey("payments"), func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestBreakerEngine_SharedManager(t *testing.T) {
	t.Parallel()

	manager, err := circuitbreaker.NewManager(log.NewNop())
	require.NoError(t, err)

	e := newTestEngine(t, WithManager(manager))

	_, err = e.Run(context.Background(), WithGroupKey("payments"), func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	assert.Equal(t, circuitbreaker.StateClosed, manager.GetState("payments"))
	assert.Equal(t, uint32(1), manager.GetCounts("payments").TotalSuccesses)
}

func TestBreakerEngine_RecordsOutcomes(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	factory, err := metrics.NewMetricsFactory(provider.Meter("test"), nil)
	require.NoError(t, err)

	e := newTestEngine(t, WithMetricsFactory(factory))
	setter := WithGroupKey("payments").AndCommandKey("authorize")

	_, err = e.Run(context.Background(), setter, func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	_, err = e.Run(context.Background(), setter, func(context.Context) (any, error) { return nil, errors.New("boom") })
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != constant.MetricCommandExecutionsTotal {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				group, _ := dp.Attributes.Value(attribute.Key(constant.AttrCommandGroup))
				assert.Equal(t, "payments", group.AsString())

				value, _ := dp.Attributes.Value(attribute.Key(constant.AttrCommandOutcome))
				outcomes[value.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{constant.OutcomeSuccess: 1, constant.OutcomeFailure: 1}, outcomes)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, constant.OutcomeSuccess, outcome(nil))
	assert.Equal(t, constant.OutcomeRejected, outcome(ErrRejected))
	assert.Equal(t, constant.OutcomeTimeout, outcome(ErrTimeout))
	assert.Equal(t, constant.OutcomeOpen, outcome(circuitbreaker.ErrTooManyRequests))
	assert.Equal(t, constant.OutcomeFailure, outcome(errors.New("boom")))
}
