// Package exporters builds OpenTelemetry span exporters and metric readers
// by configuration name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter is returned for names outside TracingNames/MetricsNames.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
	// ErrNoEndpoint is returned when an OTLP exporter has no endpoint in
	// the environment.
	ErrNoEndpoint = errors.New("exporters: endpoint not configured")
)

// Options carries exporter destinations.
type Options struct {
	// Writer receives stdout exporter output (os.Stdout when nil).
	Writer io.Writer
	// Registerer receives the Prometheus collector (default registry when nil).
	Registerer promclient.Registerer
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

type (
	spanFactory   func(ctx context.Context, o Options) (sdktrace.SpanExporter, error)
	readerFactory func(ctx context.Context, o Options) (sdkmetric.Reader, error)
)

var spanFactories = map[string]spanFactory{
	"":     discardSpans,
	"none": discardSpans,
	"stdout": func(_ context.Context, o Options) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(o.writer()))
	},
	"otlp": func(ctx context.Context, _ Options) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	// Jaeger ingests OTLP natively.
	"jaeger": func(ctx context.Context, _ Options) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
}

var readerFactories = map[string]readerFactory{
	"":     manualReader,
	"none": manualReader,
	"stdout": func(_ context.Context, o Options) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer()))
		if err != nil {
			return nil, fmt.Errorf("exporters: stdout metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"otlp": func(ctx context.Context, _ Options) (sdkmetric.Reader, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("exporters: otlp metrics: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"prometheus": func(_ context.Context, o Options) (sdkmetric.Reader, error) {
		var opts []prometheus.Option
		if o.Registerer != nil {
			opts = append(opts, prometheus.WithRegisterer(o.Registerer))
		}
		exp, err := prometheus.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("exporters: prometheus: %w", err)
		}
		return exp, nil
	},
}

// TracingNames lists the accepted tracing exporter names.
func TracingNames() []string { return names(spanFactories) }

// MetricsNames lists the accepted metrics exporter names.
func MetricsNames() []string { return names(readerFactories) }

// NewTracingExporter creates the span exporter called name.
func NewTracingExporter(ctx context.Context, name string, o Options) (sdktrace.SpanExporter, error) {
	f, ok := spanFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
	return f(ctx, o)
}

// NewMetricsReader creates the metric reader called name.
func NewMetricsReader(ctx context.Context, name string, o Options) (sdkmetric.Reader, error) {
	f, ok := readerFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
	return f(ctx, o)
}

func discardSpans(context.Context, Options) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
}

func manualReader(context.Context, Options) (sdkmetric.Reader, error) {
	return sdkmetric.NewManualReader(), nil
}

func requireEnv(keys ...string) error {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: set one of %v", ErrNoEndpoint, keys)
}

func names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
