package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Keyer derives store keys from a (locale, suffix) pair.
//
// Contract:
// - Determinism: the same pair always yields the same key.
// - Isolation: distinct pairs must yield distinct keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(locale, suffix string) (string, error)
}

// DefaultKeyer generates SHA-256 based keys.
type DefaultKeyer struct {
	prefix string
}

// NewDefaultKeyer creates a keyer whose keys start with prefix ("sidenav" if empty).
func NewDefaultKeyer(prefix string) *DefaultKeyer {
	if strings.TrimSpace(prefix) == "" {
		prefix = "sidenav"
	}
	return &DefaultKeyer{prefix: prefix}
}

// keyInput is hashed as {"locale":..,"suffix":..}; field order is fixed
// by the struct so the encoding is canonical.
type keyInput struct {
	Locale string `json:"locale"`
	Suffix string `json:"suffix"`
}

// Key returns <prefix>:<locale>:<hash>, where hash is the first 16 hex
// characters of SHA-256 over the canonical JSON of the pair. The locale
// segment is for humans reading the store; uniqueness comes from the hash,
// so "en_us"+"" and "en"+"_us" never collide.
func (k *DefaultKeyer) Key(locale, suffix string) (string, error) {
	canonical, err := json.Marshal(keyInput{Locale: locale, Suffix: suffix})
	if err != nil {
		return "", fmt.Errorf("cache: encode key input: %w", err)
	}
	sum := sha256.Sum256(canonical)

	key := k.prefix + ":" + localeSegment(locale) + ":" + hex.EncodeToString(sum[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// localeSegment keeps at most 32 of [a-z0-9_] from locale, or "any".
func localeSegment(locale string) string {
	var b strings.Builder
	for _, r := range locale {
		if b.Len() == 32 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "any"
	}
	return b.String()
}

var _ Keyer = (*DefaultKeyer)(nil)
