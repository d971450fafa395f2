package metrics

import (
	"context"
	"time"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// MetricCommandExecutions counts command executions by outcome.
	MetricCommandExecutions = Metric{
		Name:        constant.MetricCommandExecutionsTotal,
		Unit:        "1",
		Description: "Command executions by group, key and outcome.",
	}

	// MetricCommandLatency measures how long the wrapped work ran.
	MetricCommandLatency = Metric{
		Name:        constant.MetricCommandLatency,
		Unit:        "ms",
		Description: "Command run time in milliseconds.",
		Buckets:     DefaultLatencyBuckets,
	}

	// MetricBulkheadInFlight tracks callables currently running in a bulkhead.
	MetricBulkheadInFlight = Metric{
		Name:        constant.MetricBulkheadInFlight,
		Unit:        "1",
		Description: "Callables currently running in a bulkhead.",
	}
)

func commandAttrs(group, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(constant.AttrCommandGroup, constant.SanitizeMetricLabel(group)),
		attribute.String(constant.AttrCommandKey, constant.SanitizeMetricLabel(key)),
	}
}

// RecordCommand records one execution outcome and its latency.
func (f *MetricsFactory) RecordCommand(ctx context.Context, group, key, outcome string, elapsed time.Duration) {
	if f == nil {
		return
	}

	attrs := commandAttrs(group, key)

	counter, err := f.Counter(MetricCommandExecutions)
	if err == nil {
		err = counter.
			WithAttributes(attrs...).
			WithAttributes(attribute.String(constant.AttrCommandOutcome, outcome)).
			AddOne(ctx)
	}

	if err != nil {
		f.logger.Log(ctx, log.LevelWarn, "failed to record command execution", log.Err(err))
	}

	histogram, err := f.Histogram(MetricCommandLatency)
	if err == nil {
		err = histogram.WithAttributes(attrs...).Record(ctx, elapsed.Milliseconds())
	}

	if err != nil {
		f.logger.Log(ctx, log.LevelWarn, "failed to record command latency", log.Err(err))
	}
}

// RecordInFlight records how many callables a bulkhead is running.
func (f *MetricsFactory) RecordInFlight(ctx context.Context, group string, inFlight int64) {
	if f == nil {
		return
	}

	gauge, err := f.Gauge(MetricBulkheadInFlight)
	if err == nil {
		err = gauge.
			WithAttributes(attribute.String(constant.AttrCommandGroup, constant.SanitizeMetricLabel(group))).
			Set(ctx, inFlight)
	}

	if err != nil {
		f.logger.Log(ctx, log.LevelWarn, "failed to record bulkhead in-flight", log.Err(err))
	}
}
