package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kestrelnet/kestrel/core"
)

// OTelCollector records NetworkMetrics events as OTel counters and
// histograms, exported over OTLP/HTTP on a 30s periodic reader, and
// also installs a batching tracer provider as the process-global OTel
// tracer provider. Directly grounded on the teacher's OTel provider
// setup (telemetry/otel.go's NewOTelProvider); the tracer itself is
// consumed by transporthttp.NewInstrumented's otelhttp wrapping, which
// reads spans from otel.GetTracerProvider() rather than from a
// reference threaded through core.NetworkMetrics.
type OTelCollector struct {
	provider      *sdkmetric.MeterProvider
	traceProvider *sdktrace.TracerProvider
	tracer        trace.Tracer

	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
	retryCount      metric.Int64Counter
	cacheHitCount   metric.Int64Counter
}

// NewOTelCollector builds an OTel collector exporting to endpoint (an
// OTLP/HTTP endpoint, typically host:4318).
func NewOTelCollector(serviceName, endpoint string) (*OTelCollector, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	ctx := context.Background()
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter for %s: %w", endpoint, err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter for %s: %w", endpoint, err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	// Installed as the process-global tracer provider so
	// transporthttp.NewInstrumented's otelhttp.NewTransport, which
	// resolves its tracer from otel.GetTracerProvider() at call time,
	// starts producing real spans instead of no-ops.
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	meter := provider.Meter("kestrel")

	requestCount, err := meter.Int64Counter("kestrel.requests.count")
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("kestrel.requests.duration_ms")
	if err != nil {
		return nil, err
	}
	errorCount, err := meter.Int64Counter("kestrel.errors.count")
	if err != nil {
		return nil, err
	}
	retryCount, err := meter.Int64Counter("kestrel.retries.count")
	if err != nil {
		return nil, err
	}
	cacheHitCount, err := meter.Int64Counter("kestrel.cache.events")
	if err != nil {
		return nil, err
	}

	return &OTelCollector{
		provider:        provider,
		traceProvider:   traceProvider,
		tracer:          traceProvider.Tracer("kestrel"),
		requestCount:    requestCount,
		requestDuration: requestDuration,
		errorCount:      errorCount,
		retryCount:      retryCount,
		cacheHitCount:   cacheHitCount,
	}, nil
}

// Tracer returns the OTel tracer backing this collector's trace
// provider, for callers that want to start spans explicitly rather
// than relying on transporthttp.NewInstrumented's automatic ones.
func (c *OTelCollector) Tracer() trace.Tracer {
	return c.tracer
}

func (c *OTelCollector) RecordRequest(e core.RequestMetricEvent) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("method", e.Method.String()),
		attribute.Int("status", e.Status),
	)
	c.requestCount.Add(ctx, 1, attrs)
	c.requestDuration.Record(ctx, e.DurationMS, attrs)
}

func (c *OTelCollector) RecordError(e core.ErrorMetricEvent) {
	c.errorCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("method", e.Method.String()),
		attribute.String("kind", string(e.Kind)),
	))
}

func (c *OTelCollector) RecordRetry(e core.RetryMetricEvent) {
	c.retryCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("method", e.Method.String()),
		attribute.String("reason", e.Reason),
	))
}

func (c *OTelCollector) RecordCacheHit(e core.CacheMetricEvent) {
	c.cacheHitCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("result", string(e.Result)),
	))
}

// Shutdown flushes and shuts down the underlying meter and trace
// providers.
func (c *OTelCollector) Shutdown(ctx context.Context) error {
	if err := c.traceProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown trace provider: %w", err)
	}
	return c.provider.Shutdown(ctx)
}
