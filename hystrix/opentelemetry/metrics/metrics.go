package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory creates OpenTelemetry instruments lazily and caches them by name,
// so concurrent callers share one instrument per metric.
type MetricsFactory struct {
	meter      metric.Meter
	counters   sync.Map // string -> metric.Int64Counter
	gauges     sync.Map // string -> metric.Int64Gauge
	histograms sync.Map // string -> metric.Int64Histogram
	logger     log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// Buckets are histogram bucket boundaries; ignored for other instruments.
	Buckets []float64
}

// DefaultLatencyBuckets for command latency in milliseconds.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	return &MetricsFactory{
		meter:  meter,
		logger: log.OrNop(logger),
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op meter.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: log.NewNop(),
	}
}

// Counter creates or retrieves a counter metric.
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := loadOrCreate(f, &f.counters, m.Name, func() (metric.Int64Counter, error) {
		return f.meter.Int64Counter(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
	if err != nil {
		return nil, err
	}

	return &CounterBuilder{counter: counter, name: m.Name}, nil
}

// Gauge creates or retrieves a gauge metric.
func (f *MetricsFactory) Gauge(m Metric) (*GaugeBuilder, error) {
	gauge, err := loadOrCreate(f, &f.gauges, m.Name, func() (metric.Int64Gauge, error) {
		return f.meter.Int64Gauge(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
	if err != nil {
		return nil, err
	}

	return &GaugeBuilder{gauge: gauge, name: m.Name}, nil
}

// Histogram creates or retrieves a histogram metric. Histograms with different
// buckets are distinct instruments.
func (f *MetricsFactory) Histogram(m Metric) (*HistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	key := histogramCacheKey(m.Name, m.Buckets)

	histogram, err := loadOrCreate(f, &f.histograms, key, func() (metric.Int64Histogram, error) {
		return f.meter.Int64Histogram(m.Name,
			metric.WithDescription(m.Description),
			metric.WithUnit(m.Unit),
			metric.WithExplicitBucketBoundaries(m.Buckets...),
		)
	})
	if err != nil {
		return nil, err
	}

	return &HistogramBuilder{histogram: histogram, name: m.Name}, nil
}

func loadOrCreate[T any](f *MetricsFactory, cache *sync.Map, key string, create func() (T, error)) (T, error) {
	var zero T

	if cached, exists := cache.Load(key); exists {
		if inst, ok := cached.(T); ok {
			return inst, nil
		}

		return zero, fmt.Errorf("instrument cache contains invalid type for %q", key)
	}

	inst, err := create()
	if err != nil {
		f.logger.Log(context.Background(), log.LevelError, "failed to create metric instrument",
			log.String("metric_name", key), log.Err(err))

		return zero, fmt.Errorf("create instrument %q: %w", key, err)
	}

	// Another goroutine may have created it first; keep theirs.
	actual, _ := cache.LoadOrStore(key, inst)
	if stored, ok := actual.(T); ok {
		return stored, nil
	}

	return zero, fmt.Errorf("instrument cache contains invalid type for %q", key)
}

func histogramCacheKey(name string, buckets []float64) string {
	if len(buckets) == 0 {
		return name
	}

	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)

	parts := make([]string, len(sorted))
	for i, b := range sorted {
		parts[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}

	return name + ":" + strings.Join(parts, ",")
}
