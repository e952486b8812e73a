package observe

import (
	"context"
	"time"
)

// RenderFunc produces sidebar markup.
type RenderFunc func(ctx context.Context, meta RenderMeta) (string, error)

// Middleware traces, measures and logs every render. Errors pass through
// unchanged.
type Middleware struct {
	tracer  *Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components become no-ops.
func NewMiddleware(tracer *Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Wrap returns fn instrumented by m.
func (m *Middleware) Wrap(fn RenderFunc) RenderFunc {
	return func(ctx context.Context, meta RenderMeta) (string, error) {
		ctx, span := m.tracer.Start(ctx, meta)
		start := time.Now()

		html, err := fn(ctx, meta)

		duration := time.Since(start)
		Finish(span, err)
		m.metrics.RecordRender(ctx, meta, duration, err)

		fields := []Field{
			F("profile", meta.ProfileID),
			F("locale", meta.Locale),
			F("dynamic", meta.Dynamic),
			F("duration_ms", float64(duration.Milliseconds())),
		}
		if err != nil {
			fields = append(fields, F("error", err.Error()))
			m.logger.Error(ctx, "sidebar render failed", fields...)
		} else {
			fields = append(fields, F("bytes", len(html)))
			m.logger.Debug(ctx, "sidebar rendered", fields...)
		}

		return html, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
