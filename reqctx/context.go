package reqctx

import (
	"maps"
	"slices"
)

// Device is the visitor's device class.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// Valid reports whether d is a known device class.
func (d Device) Valid() bool {
	return d == DeviceDesktop || d == DeviceMobile
}

// AuthState is the visitor's authentication state.
type AuthState int8

const (
	// AuthUnknown means the identity source was unavailable.
	AuthUnknown AuthState = iota
	AuthLoggedOut
	AuthLoggedIn
)

// Bool returns the state as a boolean and whether it is known.
func (a AuthState) Bool() (loggedIn, known bool) {
	switch a {
	case AuthLoggedIn:
		return true, true
	case AuthLoggedOut:
		return false, true
	default:
		return false, false
	}
}

// String returns "logged_in", "logged_out" or "unknown".
func (a AuthState) String() string {
	switch a {
	case AuthLoggedIn:
		return "logged_in"
	case AuthLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its String form.
func (a AuthState) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes the String form. Unrecognized text is unknown.
func (a *AuthState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "logged_in":
		*a = AuthLoggedIn
	case "logged_out":
		*a = AuthLoggedOut
	default:
		*a = AuthUnknown
	}
	return nil
}

// RequestContext is an immutable snapshot of the request signals used for
// profile matching. All slices are sorted and de-duplicated.
type RequestContext struct {
	ContentIDs   []int            `json:"content_ids"`
	ContentTypes []string         `json:"content_types"`
	Terms        map[string][]int `json:"terms"`
	URL          string           `json:"url"`
	Roles        []string         `json:"roles"`
	Language     string           `json:"language"`
	Device       Device           `json:"device"`
	Auth         AuthState        `json:"auth"`
	Timestamp    int64            `json:"timestamp"`
	Weekday      string           `json:"weekday"`
	Minute       int              `json:"minute"`
}

// HasContentID reports whether id is one of the current content IDs.
func (c RequestContext) HasContentID(id int) bool {
	_, ok := slices.BinarySearch(c.ContentIDs, id)
	return ok
}

// HasContentType reports whether t is one of the current content types.
func (c RequestContext) HasContentType(t string) bool {
	_, ok := slices.BinarySearch(c.ContentTypes, t)
	return ok
}

// HasRole reports whether the visitor holds role.
func (c RequestContext) HasRole(role string) bool {
	_, ok := slices.BinarySearch(c.Roles, role)
	return ok
}

// TaxonomyTerms returns the term IDs for a taxonomy and whether the taxonomy
// is present in the context at all.
func (c RequestContext) TaxonomyTerms(taxonomy string) ([]int, bool) {
	terms, ok := c.Terms[taxonomy]
	return terms, ok
}

// Clone returns a deep copy.
func (c RequestContext) Clone() RequestContext {
	out := c
	out.ContentIDs = slices.Clone(c.ContentIDs)
	out.ContentTypes = slices.Clone(c.ContentTypes)
	out.Roles = slices.Clone(c.Roles)
	if c.Terms != nil {
		out.Terms = make(map[string][]int, len(c.Terms))
		for k, v := range c.Terms {
			out.Terms[k] = slices.Clone(v)
		}
	}
	return out
}

// Content is what a ContentSource reports about the current page.
type Content struct {
	IDs   []int
	Types []string
	Terms map[string][]int
}

func (c Content) normalized() Content {
	out := Content{
		IDs:   sortedInts(c.IDs),
		Types: sortedStrings(c.Types),
		Terms: map[string][]int{},
	}
	for _, tax := range slices.Sorted(maps.Keys(c.Terms)) {
		if tax == "" {
			continue
		}
		out.Terms[tax] = sortedInts(c.Terms[tax])
	}
	return out
}

func sortedInts(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
