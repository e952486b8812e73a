package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records render and cache activity. Implementations are safe for
// concurrent use.
type Metrics interface {
	// RecordRender counts one render; a non-nil err also counts as a failure.
	RecordRender(ctx context.Context, meta RenderMeta, d time.Duration, err error)

	// RecordCacheEvent adds n to the counter for event (hit, miss, set,
	// clear, purge). Non-positive n is ignored.
	RecordCacheEvent(ctx context.Context, event, locale string, n int64)
}

// Instrument names as exported by the otel SDK.
const (
	MetricRenders        = "sidenav.render.total"
	MetricRenderErrors   = "sidenav.render.errors"
	MetricRenderDuration = "sidenav.render.duration_ms"
	MetricCacheEvents    = "sidenav.cache.events"
)

type otelMetrics struct {
	renders  metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	cache    metric.Int64Counter
}

// NewMetrics creates the sidenav instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	var m otelMetrics
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	var err error
	m.renders, err = meter.Int64Counter(MetricRenders,
		metric.WithDescription("Sidebar renders"), metric.WithUnit("{render}"))
	add(err)
	m.failures, err = meter.Int64Counter(MetricRenderErrors,
		metric.WithDescription("Sidebar renders that produced no output"), metric.WithUnit("{error}"))
	add(err)
	m.latency, err = meter.Float64Histogram(MetricRenderDuration,
		metric.WithDescription("Sidebar render latency"), metric.WithUnit("ms"))
	add(err)
	m.cache, err = meter.Int64Counter(MetricCacheEvents,
		metric.WithDescription("Fragment cache events by type"), metric.WithUnit("{event}"))
	add(err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *otelMetrics) RecordRender(ctx context.Context, meta RenderMeta, d time.Duration, err error) {
	set := metric.WithAttributeSet(attribute.NewSet(
		append(meta.attributes(), attribute.Bool("sidenav.cache_hit", meta.CacheHit))...,
	))
	m.renders.Add(ctx, 1, set)
	if err != nil {
		m.failures.Add(ctx, 1, set)
	}
	m.latency.Record(ctx, float64(d)/float64(time.Millisecond), set)
}

func (m *otelMetrics) RecordCacheEvent(ctx context.Context, event, locale string, n int64) {
	if n <= 0 {
		return
	}
	kv := []attribute.KeyValue{attribute.String("sidenav.cache_event", event)}
	if locale != "" {
		kv = append(kv, attribute.String("sidenav.locale", locale))
	}
	m.cache.Add(ctx, n, metric.WithAttributes(kv...))
}

type nopMetrics struct{}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordRender(context.Context, RenderMeta, time.Duration, error) {}

func (nopMetrics) RecordCacheEvent(context.Context, string, string, int64) {}
