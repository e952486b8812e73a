package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/sidenav/secret"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(context.Background(), nil)
	if err != nil {
		t.Fatalf("Parse(empty) error: %v", err)
	}
	want := Default()
	if cfg.Server.Addr != want.Server.Addr || cfg.Store.Driver != "memory" || cfg.Cache.DefaultTTL != 12*time.Hour {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Observe.ServiceName != "sidenav" || cfg.Render.Timeout != want.Render.Timeout {
		t.Errorf("observe/render defaults = %+v / %+v", cfg.Observe, cfg.Render)
	}
}

func TestParse_Document(t *testing.T) {
	t.Setenv("SIDENAV_DB", "/var/lib/sidenav.db")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("hmac-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc := `
server:
  addr: 127.0.0.1:9000
  admin: {enabled: true, role: editor}
store:
  driver: sqlite
  path: ${SIDENAV_DB}
cache:
  ttl: 30m
  max_ttl: 2h
  namespace: docs
  purge_interval: 5m
site:
  default_locale: fr_fr
  supported_locales: [fr_fr, en_us]
  time_zone: Europe/Paris
auth:
  secret: secretref:file:jwt
  issuer: https://id.example
render:
  timeout: 500ms
  max_failures: 3
secrets:
  dir: ` + dir + `
`
	cfg, err := Parse(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Store.Path != "/var/lib/sidenav.db" {
		t.Errorf("store.path = %q", cfg.Store.Path)
	}
	if cfg.Auth.Secret != "hmac-key" {
		t.Errorf("auth.secret = %q, want resolved secret", cfg.Auth.Secret)
	}
	if cfg.Cache.DefaultTTL != 30*time.Minute || cfg.Cache.MaxTTL != 2*time.Hour || cfg.Cache.Namespace != "docs" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Render.Timeout != 500*time.Millisecond || cfg.Render.MaxFailures != 3 || cfg.Render.ResetTimeout != 30*time.Second {
		t.Errorf("render = %+v", cfg.Render)
	}
	if !cfg.Server.Admin.Enabled || cfg.Server.Admin.Role != "editor" {
		t.Errorf("admin = %+v", cfg.Server.Admin)
	}
	loc, err := cfg.Site.Location()
	if err != nil || loc.String() != "Europe/Paris" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
	}{
		{"missing env", "store: {path: ${SIDENAV_UNSET_VAR}}", secret.ErrMissingEnv, "SIDENAV_UNSET_VAR"},
		{"unknown key", "sever: {addr: x}", nil, "sever"},
		{"bad driver", "store: {driver: redis}", ErrInvalid, "store.driver"},
		{"sqlite without path", "store: {driver: sqlite}", ErrInvalid, "store.path"},
		{"bad addr", "server: {addr: nope}", ErrInvalid, "server.addr"},
		{"bad zone", "site: {time_zone: Mars/Olympus}", ErrInvalid, "site.time_zone"},
		{"bad jwks url", "auth: {jwks_url: not a url}", ErrInvalid, "auth.jwks_url"},
		{"conflicting keys", "auth: {secret: s, jwks_url: 'https://id.example/jwks'}", ErrInvalid, "mutually exclusive"},
		{"ttl over max", "cache: {ttl: 3h, max_ttl: 1h}", ErrInvalid, "max_ttl"},
		{"negative timeout", "render: {timeout: -1s}", ErrInvalid, "render.timeout"},
		{"bad exporter", "observe: {service_name: s, metrics: {enabled: true, exporter: carrier-pigeon}}", ErrInvalid, "observe"},
		{"unresolvable secret", "auth: {secret: 'secretref:vault:x'}", nil, "auth.secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.doc))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}
