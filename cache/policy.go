package cache

import "time"

// Policy bounds how long rendered sidebars live in the store.
type Policy struct {
	// DefaultTTL applies to Set. Zero disables caching: Set becomes a no-op.
	DefaultTTL time.Duration `yaml:"ttl" validate:"gte=0"`

	// MaxTTL caps explicit TTLs passed to SetTTL. Zero means uncapped.
	MaxTTL time.Duration `yaml:"max_ttl" validate:"gte=0"`
}

// DefaultPolicy keeps fragments for 12 hours and never longer than a day.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: 12 * time.Hour, MaxTTL: 24 * time.Hour}
}

// NoCachePolicy disables storage.
func NoCachePolicy() Policy { return Policy{} }

// ShouldCache reports whether Set stores anything.
func (p Policy) ShouldCache() bool { return p.DefaultTTL > 0 }

// EffectiveTTL resolves a requested TTL: non-positive means DefaultTTL, and
// the result never exceeds MaxTTL.
func (p Policy) EffectiveTTL(requested time.Duration) time.Duration {
	ttl := requested
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 {
		ttl = min(ttl, p.MaxTTL)
	}
	return ttl
}
