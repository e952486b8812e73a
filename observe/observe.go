package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/sidenav/observe/exporters"
)

// Config is the observe section of the sidenav configuration file.
type Config struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig selects the span exporter and sampling ratio.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig selects the metric reader.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// LoggingConfig sets the minimum log level.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// Validate checks the enabled sections only.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	var errs []error
	if t := c.Tracing; t.Enabled {
		if !knownExporter(t.Exporter, exporters.TracingNames()) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter))
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			errs = append(errs, fmt.Errorf("%w: got %g", ErrInvalidSamplePct, t.SamplePct))
		}
	}
	if m := c.Metrics; m.Enabled && !knownExporter(m.Exporter, exporters.MetricsNames()) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter))
	}
	if c.Logging.Enabled {
		if _, err := ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func knownExporter(name string, names []string) bool {
	return name == "" || slices.Contains(names, name)
}

// Observer hands out the tracer, meter and logger built from a Config.
// Shutdown flushes exporters and is safe to call more than once.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Option customizes NewObserver.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	logWriter  io.Writer
	logger     Logger
}

// WithPrometheusRegisterer registers the prometheus exporter into reg
// instead of the default registry.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogWriter sends the built-in JSON logger's output to w.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithLogger replaces the built-in JSON logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
}

// NewObserver builds the providers selected by cfg and installs them as the
// otel globals. Disabled sections get no-op implementations.
func NewObserver(ctx context.Context, cfg Config, opts ...Option) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}
	eo := exporters.Options{Writer: os.Stdout, Registerer: o.registerer}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, eo)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		obs.tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.Tracing.SamplePct))),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(obs.tp)
		obs.tracer = obs.tp.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, eo)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		obs.mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(obs.mp)
		obs.meter = obs.mp.Meter(cfg.ServiceName)
	}

	switch {
	case o.logger != nil:
		obs.logger = o.logger
	case cfg.Logging.Enabled:
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, o.logWriter)
	}
	return obs, nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(pct)
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tp != nil {
		if err := o.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.mp != nil {
		if err := o.mp.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
