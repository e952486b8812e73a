package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: kv store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrEmptyValue = errors.New("cache: refusing to cache empty markup")
)

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Metrics are cumulative counters persisted alongside the entries.
type Metrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Clears int64 `json:"clears"`
	Purged int64 `json:"purged"`
}

// HitRatio returns hits / (hits + misses), or 0 with no lookups.
func (m Metrics) HitRatio() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// EntryInfo describes one tracked entry.
type EntryInfo struct {
	Locale    string `json:"locale"`
	Suffix    string `json:"suffix,omitempty"`
	Key       string `json:"key"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	Hits      int64  `json:"hits"`
}

// entryMeta is persisted per entry under "<key>:meta".
type entryMeta struct {
	Locale    string `json:"locale"`
	Suffix    string `json:"suffix,omitempty"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	Hits      int64  `json:"hits"`
}

// expired reports whether the entry's expiry lies strictly before now.
// A zero ExpiresAt never expires.
func (m entryMeta) expired(now int64) bool {
	return m.ExpiresAt != 0 && m.ExpiresAt < now
}

// NormalizeLocale lower-cases a locale tag and uses '_' as the separator.
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "-", "_")
}
