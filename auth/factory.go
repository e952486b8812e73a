package auth

import (
	"errors"
	"time"

	"github.com/jonwraymond/sidenav/observe"
)

// Config selects how viewers are identified. With neither a secret nor a
// JWKS URL every viewer is anonymous.
type Config struct {
	// Secret is an HMAC signing secret. Usually set as "${SIDENAV_JWT_SECRET}".
	Secret   string `yaml:"secret"`
	JWKSURL  string `yaml:"jwks_url" validate:"omitempty,url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`

	CookieName   string        `yaml:"cookie"`
	SubjectClaim string        `yaml:"subject_claim"`
	RolesClaim   string        `yaml:"roles_claim"`
	Leeway       time.Duration `yaml:"leeway" validate:"gte=0"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl" validate:"gte=0"`
}

// Enabled reports whether any key source is configured.
func (c Config) Enabled() bool {
	return c.Secret != "" || c.JWKSURL != ""
}

// ErrConflictingKeys is returned when both a secret and a JWKS URL are set.
var ErrConflictingKeys = errors.New("auth: secret and jwks_url are mutually exclusive")

// NewFromConfig builds the authenticator described by cfg. It returns
// (nil, nil) when authentication is disabled.
func NewFromConfig(cfg Config, logger observe.Logger) (Authenticator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.Secret != "" && cfg.JWKSURL != "" {
		return nil, ErrConflictingKeys
	}

	var keys KeyProvider
	if cfg.Secret != "" {
		keys = NewStaticKeyProvider([]byte(cfg.Secret))
	} else {
		keys = NewJWKSKeyProvider(JWKSConfig{
			URL:      cfg.JWKSURL,
			CacheTTL: cfg.JWKSCacheTTL,
			Logger:   logger,
		})
	}

	return NewJWTAuthenticator(JWTConfig{
		Issuer:       cfg.Issuer,
		Audience:     cfg.Audience,
		CookieName:   cfg.CookieName,
		SubjectClaim: cfg.SubjectClaim,
		RolesClaim:   cfg.RolesClaim,
		Leeway:       cfg.Leeway,
	}, keys), nil
}
