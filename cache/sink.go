package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/sidenav/observe"
)

// EventType names a cache operation outcome.
type EventType string

const (
	EventHit        EventType = "hit"
	EventMiss       EventType = "miss"
	EventSet        EventType = "set"
	EventClear      EventType = "clear"
	EventClearEntry EventType = "clear_entry"
	EventPurge      EventType = "purge"
)

// Event is emitted after every cache operation. Metrics is the cumulative
// snapshot taken after the operation was applied.
type Event struct {
	Type    EventType
	Locale  string
	Suffix  string
	Key     string
	Count   int
	Metrics Metrics
	At      time.Time
}

// Sink receives cache events. Implementations must not block.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, ev Event) { f(ctx, ev) }

type multiSink []Sink

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Record(ctx, ev)
	}
}

// LogSink writes lookups at debug level and mutations at info level.
func LogSink(logger observe.Logger) Sink {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return SinkFunc(func(ctx context.Context, ev Event) {
		fields := []observe.Field{
			observe.F("event", string(ev.Type)),
			observe.F("locale", ev.Locale),
			observe.F("hits", ev.Metrics.Hits),
			observe.F("misses", ev.Metrics.Misses),
		}
		if ev.Suffix != "" {
			fields = append(fields, observe.F("suffix", ev.Suffix))
		}
		switch ev.Type {
		case EventHit, EventMiss, EventSet:
			logger.Debug(ctx, "sidebar cache "+string(ev.Type), fields...)
		default:
			fields = append(fields, observe.F("count", ev.Count))
			logger.Info(ctx, "sidebar cache "+string(ev.Type), fields...)
		}
	})
}

// MetricsSink forwards events to the sidenav.cache.events counter.
func MetricsSink(m observe.Metrics) Sink {
	if m == nil {
		m = observe.NopMetrics()
	}
	return SinkFunc(func(ctx context.Context, ev Event) {
		n := int64(ev.Count)
		if n <= 0 {
			n = 1
		}
		m.RecordCacheEvent(ctx, string(ev.Type), ev.Locale, n)
	})
}

type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}
