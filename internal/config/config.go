// Package config loads the sidenav YAML configuration.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/resilience"
	"github.com/jonwraymond/sidenav/secret"
)

// Config is the top-level configuration file.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Store    StoreConfig       `yaml:"store"`
	Cache    CacheConfig       `yaml:"cache"`
	Site     SiteConfig        `yaml:"site"`
	Profiles ProfilesConfig    `yaml:"profiles"`
	Auth     auth.Config       `yaml:"auth"`
	Render   resilience.Config `yaml:"render"`
	Observe  observe.Config    `yaml:"observe"`
	Secrets  SecretsConfig     `yaml:"secrets"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	Admin           AdminConfig   `yaml:"admin"`
}

// AdminConfig guards the cache administration routes. An empty Role leaves
// them open to every viewer.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Role    string `yaml:"role"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
}

// CacheConfig configures the rendered-HTML cache.
type CacheConfig struct {
	cache.Policy  `yaml:",inline"`
	Namespace     string        `yaml:"namespace"`
	PurgeInterval time.Duration `yaml:"purge_interval" validate:"gte=0"`
}

// SiteConfig carries site-wide request defaults.
type SiteConfig struct {
	BaseURL          string   `yaml:"base_url" validate:"omitempty,url"`
	DefaultLocale    string   `yaml:"default_locale" validate:"required"`
	SupportedLocales []string `yaml:"supported_locales"`
	TimeZone         string   `yaml:"time_zone" validate:"required,timezone"`
}

// Location loads the configured time zone.
func (s SiteConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.TimeZone)
}

// ProfilesConfig points at the profiles document.
type ProfilesConfig struct {
	// File is a YAML document with options, profiles and links. Empty
	// means profiles are read from the store's options.
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

// SecretsConfig configures secret reference providers.
type SecretsConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used for keys the file omits.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Admin:           AdminConfig{Role: "administrator"},
		},
		Store: StoreConfig{Driver: "memory"},
		Cache: CacheConfig{
			Policy:        cache.DefaultPolicy(),
			PurgeInterval: time.Hour,
		},
		Site: SiteConfig{
			DefaultLocale: "en_us",
			TimeZone:      "UTC",
		},
		Render: resilience.DefaultConfig(),
		Observe: observe.Config{
			ServiceName: "sidenav",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Secrets: SecretsConfig{Dir: "/run/secrets"},
	}
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Load reads, expands and validates the file at path.
func Load(ctx context.Context, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(ctx, raw)
}

// Parse decodes a configuration document over Default. ${VAR} references
// are expanded before decoding and secret references after.
func Parse(ctx context.Context, raw []byte) (Config, error) {
	expanded, err := secret.ExpandEnvStrict(string(raw))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	resolver := secret.NewResolver(secret.NewFileProvider(cfg.Secrets.Dir))
	if err := resolver.ResolveAll(ctx, map[string]*string{
		"auth.secret": &cfg.Auth.Secret,
	}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", trimRoot(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Auth.Secret != "" && c.Auth.JWKSURL != "" {
		return fmt.Errorf("%w: %v", ErrInvalid, auth.ErrConflictingKeys)
	}
	if c.Cache.MaxTTL > 0 && c.Cache.DefaultTTL > c.Cache.MaxTTL {
		return fmt.Errorf("%w: cache.ttl exceeds cache.max_ttl", ErrInvalid)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %v", ErrInvalid, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// trimRoot drops the leading "Config." from a validator namespace.
func trimRoot(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}
