// Package telemetry configures OpenTelemetry tracing and metrics for
// contentauthd.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Shutdown flushes and stops the tracer and meter providers.
type Shutdown func(context.Context) error

// Init installs OTLP/HTTP tracer and meter providers when endpoint is set.
// With an empty endpoint it is a no-op and the global providers stay the
// defaults.
func Init(ctx context.Context, serviceName, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
	target := parseEndpoint(endpoint)

	spanExporter, err := otlptracehttp.New(ctx, target.traceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, target.metricOptions()...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

type endpointTarget struct {
	host     string
	path     string
	insecure bool
}

// parseEndpoint accepts either a bare host:port or a full URL. http:// URLs
// and bare hosts are exported without TLS.
func parseEndpoint(endpoint string) endpointTarget {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return endpointTarget{host: endpoint, insecure: true}
	}
	t := endpointTarget{host: parsed.Host, insecure: parsed.Scheme == "http"}
	if parsed.Path != "" && parsed.Path != "/" {
		t.path = parsed.Path
	}
	return t
}

func (t endpointTarget) traceOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.host)}
	if t.path != "" {
		opts = append(opts, otlptracehttp.WithURLPath(t.path))
	}
	if t.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// metricOptions ignores a custom path. It names the trace route, and metrics
// keep the collector's default /v1/metrics.
func (t endpointTarget) metricOptions() []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(t.host)}
	if t.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return opts
}

// Middleware wraps handlers in an otelhttp server span named operation.
func Middleware(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, operation)
	}
}
