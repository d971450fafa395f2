package runtime

import (
	"context"
	"sync"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry/metrics"
	"go.opentelemetry.io/otel/attribute"
)

var panicRecoveredMetric = metrics.Metric{
	Name:        constant.MetricPanicRecoveredTotal,
	Unit:        "1",
	Description: "Total number of recovered panics",
}

var (
	panicFactory   *metrics.MetricsFactory
	panicLogger    log.Logger
	panicMetricsMu sync.RWMutex
)

// InitPanicMetrics enables the panic counter. Later calls are no-ops until
// ResetPanicMetrics.
func InitPanicMetrics(factory *metrics.MetricsFactory, logger log.Logger) {
	panicMetricsMu.Lock()
	defer panicMetricsMu.Unlock()

	if factory == nil || panicFactory != nil {
		return
	}

	panicFactory = factory
	panicLogger = log.OrNop(logger)
}

// ResetPanicMetrics disables the panic counter. Intended for tests.
func ResetPanicMetrics() {
	panicMetricsMu.Lock()
	defer panicMetricsMu.Unlock()

	panicFactory = nil
	panicLogger = nil
}

func recordPanicMetric(ctx context.Context, component, goroutineName string) {
	panicMetricsMu.RLock()
	factory, logger := panicFactory, panicLogger
	panicMetricsMu.RUnlock()

	if factory == nil {
		return
	}

	counter, err := factory.Counter(panicRecoveredMetric)
	if err == nil {
		err = counter.
			WithAttributes(
				attribute.String("component", constant.SanitizeMetricLabel(component)),
				attribute.String("goroutine_name", constant.SanitizeMetricLabel(goroutineName)),
			).
			AddOne(ctx)
	}

	if err != nil {
		logger.Log(ctx, log.LevelWarn, "failed to record panic metric", log.Err(err))
	}
}
