package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache hit", F("locale", "en_us"), F("hits", 3))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["msg"] != "cache hit" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["locale"] != "en_us" {
		t.Errorf("locale = %v", entry["locale"])
	}
	if entry["hits"] != float64(3) {
		t.Errorf("hits = %v", entry["hits"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines at warn level, got %d", len(lines))
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", lines[0]["msg"], lines[1]["msg"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "auth", F("token", "abc"), F("authorization", "Bearer x"), F("user", "bob"))

	entry := decodeLines(t, &buf)[0]
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token not redacted: %v", entry["token"])
	}
	if entry["authorization"] != "[REDACTED]" {
		t.Errorf("authorization not redacted: %v", entry["authorization"])
	}
	if entry["user"] != "bob" {
		t.Errorf("user = %v", entry["user"])
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.With(F("component", "cache"))

	scoped.Info(context.Background(), "scoped")
	base.Info(context.Background(), "base")

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "cache" {
		t.Errorf("scoped logger missing field: %v", lines[0])
	}
	if _, ok := lines[1]["component"]; ok {
		t.Error("With must not mutate the parent logger")
	}
}

func TestLogger_ErrorValuesAreStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "failed", F("error", errors.New("boom")))

	if got := decodeLines(t, &buf)[0]["error"]; got != "boom" {
		t.Errorf("error field = %v, want boom", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("trace"); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("ParseLevel(trace) error = %v", err)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.Info(ctx, "rendered")

	entry := decodeLines(t, &buf)[0]
	if entry["trace_id"] != sc.TraceID().String() || entry["span_id"] != sc.SpanID().String() {
		t.Errorf("entry = %v, want trace correlation ids", entry)
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	if l.With(F("a", 1)) == nil {
		t.Error("With on nop logger returned nil")
	}
}
