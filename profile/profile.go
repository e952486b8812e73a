package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/jonwraymond/sidenav/internal/coerce"
)

// DefaultID is the id of the implicit fallback profile.
const DefaultID = "default"

// Origin records whether a profile id was authored or derived.
type Origin string

const (
	OriginExplicit Origin = "explicit"
	OriginAuto     Origin = "auto"
)

// Profile is a normalized, conditionally activated settings override.
type Profile struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Enabled    bool           `json:"enabled"`
	Priority   int            `json:"priority"`
	Conditions Conditions     `json:"conditions"`
	Settings   map[string]any `json:"settings"`
	Origin     Origin         `json:"origin"`
}

var (
	enabledAliases  = []string{"enabled", "active", "is_enabled"}
	disabledAliases = []string{"disabled", "is_disabled", "inactive"}
)

// Normalize turns raw profile records into Profiles. Ids are slugged,
// derived from a content hash when absent and made unique by suffixing
// "-2", "-3", ... in declaration order. The reserved DefaultID is never
// assigned to a record.
func Normalize(raws []map[string]any) []Profile {
	used := map[string]bool{DefaultID: true}
	out := make([]Profile, 0, len(raws))

	for _, raw := range raws {
		if raw == nil {
			continue
		}
		raw, _ = coerce.Plain(raw).(map[string]any)

		p := Profile{
			Enabled:    enabled(raw),
			Conditions: ParseConditions(mapOf(raw["conditions"])),
			Settings:   StripProfiles(mapOf(raw["settings"])),
			Origin:     OriginExplicit,
		}
		if n, ok := coerce.Int(raw["priority"]); ok {
			p.Priority = int(n)
		}

		id := rawID(raw)
		if id == "" {
			id = autoID(raw)
			p.Origin = OriginAuto
		}
		p.ID = unique(id, used)

		p.Label = firstString(raw, "label", "name")
		if p.Label == "" {
			p.Label = p.ID
		}
		out = append(out, p)
	}
	return out
}

func rawID(raw map[string]any) string {
	for _, key := range []string{"id", "slug"} {
		if s, ok := coerce.String(raw[key]); ok {
			if slug := coerce.Slug(s); slug != "" {
				return slug
			}
		}
	}
	return ""
}

// autoID hashes the record's canonical JSON. encoding/json sorts map keys.
func autoID(raw map[string]any) string {
	doc, err := json.Marshal(raw)
	if err != nil {
		doc = []byte(strconv.Itoa(len(raw)))
	}
	sum := sha256.Sum256(doc)
	return "p-" + hex.EncodeToString(sum[:])[:10]
}

func unique(id string, used map[string]bool) string {
	candidate := id
	for n := 2; used[candidate]; n++ {
		candidate = id + "-" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// enabled is false when any disabled alias is truthy or any enabled alias
// is falsy. Unreadable flag values are ignored.
func enabled(raw map[string]any) bool {
	for _, key := range disabledAliases {
		if v, ok := coerce.Bool(raw[key]); ok && v {
			return false
		}
	}
	for _, key := range enabledAliases {
		val, present := raw[key]
		if !present {
			continue
		}
		if v, ok := coerce.Bool(val); ok && !v {
			return false
		}
	}
	return true
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := coerce.String(raw[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

func mapOf(v any) map[string]any {
	m, _ := coerce.Map(v)
	return m
}
