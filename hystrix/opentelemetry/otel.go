package opentelemetry

import (
	"context"
	"errors"
	"fmt"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/log"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/opentelemetry/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

var (
	// ErrNilTelemetryConfig indicates that nil config was provided to InitializeTelemetryWithError
	ErrNilTelemetryConfig = errors.New("telemetry config cannot be nil")
	// ErrNilTelemetryLogger indicates that config.Logger is nil
	ErrNilTelemetryLogger = errors.New("telemetry config logger cannot be nil")
)

type TelemetryConfig struct {
	LibraryName               string
	ServiceName               string
	ServiceVersion            string
	DeploymentEnv             string
	CollectorExporterEndpoint string
	EnableTelemetry           bool
	Logger                    log.Logger
}

type Telemetry struct {
	TelemetryConfig
	TracerProvider *sdktrace.TracerProvider
	MetricProvider *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	MetricsFactory *metrics.MetricsFactory
	shutdown       func(ctx context.Context)
}

func (tl *TelemetryConfig) newResource() *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(tl.ServiceName),
		semconv.ServiceVersion(tl.ServiceVersion),
		semconv.DeploymentEnvironmentName(tl.DeploymentEnv),
		semconv.TelemetrySDKName(constant.TelemetrySDKName),
		semconv.TelemetrySDKLanguageGo,
	)
}

func (tl *TelemetryConfig) newTracerProvider(rsc *sdkresource.Resource, exp *otlptrace.Exporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsc),
		sdktrace.WithSpanProcessor(CorrelationSpanProcessor{}),
	)
}

func (tl *TelemetryConfig) newMeterProvider(rsc *sdkresource.Resource, exp *otlpmetricgrpc.Exporter) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	)
}

func (tl *TelemetryConfig) newLoggerProvider(rsc *sdkresource.Resource, exp *otlploggrpc.Exporter) *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(rsc),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
}

// ShutdownTelemetry flushes and shuts down providers and exporters.
func (tl *Telemetry) ShutdownTelemetry(ctx context.Context) {
	if tl == nil || tl.shutdown == nil {
		return
	}

	tl.shutdown(ctx)
}

// InitializeTelemetryWithError initializes the telemetry providers and sets them globally.
// With EnableTelemetry false it returns exporter-less providers and installs nothing globally.
func InitializeTelemetryWithError(ctx context.Context, cfg *TelemetryConfig) (*Telemetry, error) {
	if cfg == nil {
		return nil, ErrNilTelemetryConfig
	}

	if cfg.Logger == nil {
		return nil, ErrNilTelemetryLogger
	}

	l := cfg.Logger

	if !cfg.EnableTelemetry {
		l.Log(ctx, log.LevelWarn, "telemetry turned off")

		mp := sdkmetric.NewMeterProvider()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(CorrelationSpanProcessor{}))
		lp := sdklog.NewLoggerProvider()

		factory, err := metrics.NewMetricsFactory(mp.Meter(cfg.LibraryName), l)
		if err != nil {
			return nil, fmt.Errorf("can't initialize metrics factory: %w", err)
		}

		return &Telemetry{
			TelemetryConfig: *cfg,
			TracerProvider:  tp,
			MetricProvider:  mp,
			LoggerProvider:  lp,
			MetricsFactory:  factory,
			shutdown:        func(context.Context) {},
		}, nil
	}

	l.Log(ctx, log.LevelInfo, "initializing telemetry", log.String("endpoint", cfg.CollectorExporterEndpoint))

	r := cfg.newResource()

	tExp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize tracer exporter: %w", err)
	}

	mExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize metric exporter: %w", err)
	}

	lExp, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlploggrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize logger exporter: %w", err)
	}

	mp := cfg.newMeterProvider(r, mExp)
	otel.SetMeterProvider(mp)

	factory, err := metrics.NewMetricsFactory(mp.Meter(cfg.LibraryName), l)
	if err != nil {
		return nil, fmt.Errorf("can't initialize metrics factory: %w", err)
	}

	tp := cfg.newTracerProvider(r, tExp)
	otel.SetTracerProvider(tp)

	lp := cfg.newLoggerProvider(r, lExp)
	global.SetLoggerProvider(lp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	shutdownHandler := func(ctx context.Context) {
		if err := mp.Shutdown(ctx); err != nil {
			l.Log(ctx, log.LevelError, "can't shutdown metric provider", log.Err(err))
		}

		if err := tp.Shutdown(ctx); err != nil {
			l.Log(ctx, log.LevelError, "can't shutdown tracer provider", log.Err(err))
		}

		if err := lp.Shutdown(ctx); err != nil {
			l.Log(ctx, log.LevelError, "can't shutdown logger provider", log.Err(err))
		}
	}

	l.Log(ctx, log.LevelInfo, "telemetry initialized")

	return &Telemetry{
		TelemetryConfig: *cfg,
		TracerProvider:  tp,
		MetricProvider:  mp,
		LoggerProvider:  lp,
		MetricsFactory:  factory,
		shutdown:        shutdownHandler,
	}, nil
}
