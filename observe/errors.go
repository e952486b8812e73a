package observe

import "errors"

// Config errors, wrapped with the offending value by Config.Validate.
var (
	ErrMissingServiceName     = errors.New("observe: service_name is required")
	ErrInvalidSamplePct       = errors.New("observe: tracing.sample_pct must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unknown tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unknown metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unknown log level")
)

// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
var ErrNilObserver = errors.New("observe: nil observer")
