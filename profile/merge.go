package profile

import "github.com/jonwraymond/sidenav/internal/coerce"

// ProfilesKey is stripped from every settings map so an override can never
// carry its own profile list.
const ProfilesKey = "profiles"

// StripProfiles returns a deep copy of settings without ProfilesKey.
func StripProfiles(settings map[string]any) map[string]any {
	out, _ := coerce.Plain(settings).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	delete(out, ProfilesKey)
	return out
}

// Merge overlays override onto base. Nested maps merge recursively; any
// other value, lists included, replaces the base value. Neither input is
// modified.
func Merge(base, override map[string]any) map[string]any {
	return mergeInto(StripProfiles(base), StripProfiles(override))
}

// mergeInto mutates dst; both arguments are private copies.
func mergeInto(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeInto(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
