package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "sidenav"},
		},
		{
			name: "bad tracing exporter",
			cfg: Config{
				ServiceName: "sidenav",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "sidenav",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{
				ServiceName: "sidenav",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{
				ServiceName: "sidenav",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not validated",
			cfg: Config{
				ServiceName: "sidenav",
				Tracing:     TracingConfig{Exporter: "zipkin"},
				Logging:     LoggingConfig{Level: "trace"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "sidenav"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer components must never be nil")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_LoggingAndPrometheus(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()

	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "sidenav",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}, WithLogWriter(&buf), WithPrometheusRegisterer(reg))
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	obs.Logger().Info(context.Background(), "hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("log output = %q", buf.String())
	}

	m, err := NewMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordCacheEvent(context.Background(), "hit", "en_us", 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "sidenav_cache_events") {
			found = true
		}
	}
	if !found {
		t.Error("cache events counter not exported to the prometheus registry")
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("expected ErrMissingServiceName, got %v", err)
	}
}

func TestNewObserver_WithLogger(t *testing.T) {
	custom := NopLogger()
	obs, err := NewObserver(context.Background(), Config{ServiceName: "sidenav"}, WithLogger(custom))
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Logger() != custom {
		t.Error("WithLogger was not applied")
	}
}
