package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RenderSpan is the name of the span covering one sidebar render.
const RenderSpan = "sidenav.render"

// RenderMeta describes one sidebar render.
type RenderMeta struct {
	Locale    string
	ProfileID string // "default" for the fallback profile
	Dynamic   bool
	CacheHit  bool
}

func (m RenderMeta) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	attrs = append(attrs,
		attribute.String("sidenav.profile", m.ProfileID),
		attribute.Bool("sidenav.dynamic", m.Dynamic),
	)
	if m.Locale != "" {
		attrs = append(attrs, attribute.String("sidenav.locale", m.Locale))
	}
	return attrs
}

// Tracer opens render spans. The zero value is unusable; use NewTracer.
type Tracer struct {
	t trace.Tracer
}

// NewTracer wraps t. A nil t records nothing.
func NewTracer(t trace.Tracer) *Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("sidenav")
	}
	return &Tracer{t: t}
}

// Start opens a RenderSpan annotated with meta.
func (t *Tracer) Start(ctx context.Context, meta RenderMeta) (context.Context, trace.Span) {
	return t.t.Start(ctx, RenderSpan,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(meta.attributes()...),
	)
}

// Finish ends span, marking it failed when err is non-nil.
func Finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
