package render

import (
	"strings"

	"github.com/jonwraymond/sidenav/internal/coerce"
)

// CurrentMode controls how an item's "current page" state is decided.
type CurrentMode string

const (
	// CurrentAuto compares the item's link with the request.
	CurrentAuto   CurrentMode = "auto"
	CurrentAlways CurrentMode = "always"
	CurrentNever  CurrentMode = "never"
)

func parseCurrentMode(v any) CurrentMode {
	s, _ := coerce.String(v)
	switch CurrentMode(strings.ToLower(s)) {
	case CurrentAlways:
		return CurrentAlways
	case CurrentNever:
		return CurrentNever
	default:
		return CurrentAuto
	}
}

// Item is one navigation entry.
type Item struct {
	Label    string      `json:"label"`
	URL      string      `json:"url,omitempty"`
	Target   int         `json:"target,omitempty"`
	Icon     string      `json:"icon,omitempty"`
	NewTab   bool        `json:"new_tab,omitempty"`
	Current  CurrentMode `json:"current"`
	Children []Item      `json:"children,omitempty"`
}

// HasLink reports whether the item points anywhere.
func (i Item) HasLink() bool {
	return i.URL != "" || i.Target != 0
}

// Search configures the search box. Shortcode is a server-side fragment
// executed on every render.
type Search struct {
	Enabled     bool   `json:"enabled"`
	Shortcode   string `json:"shortcode,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Settings is the typed view of a selected profile's settings map.
type Settings struct {
	Title            string         `json:"title"`
	Search           Search         `json:"search"`
	HighlightCurrent bool           `json:"highlight_current"`
	Items            []Item         `json:"items"`
	Style            map[string]any `json:"style,omitempty"`
}

// maxDepth bounds item nesting.
const maxDepth = 8

// DecodeSettings reads a settings map leniently. Unknown keys are ignored
// and malformed values fall back to zero values.
func DecodeSettings(m map[string]any) Settings {
	var s Settings
	s.Title, _ = coerce.String(m["title"])
	s.HighlightCurrent, _ = coerce.Bool(m["highlight_current"])

	if search, ok := coerce.Map(m["search"]); ok {
		s.Search.Enabled, _ = coerce.Bool(search["enabled"])
		s.Search.Shortcode, _ = coerce.String(search["shortcode"])
		s.Search.Placeholder, _ = coerce.String(search["placeholder"])
	}
	s.Items = decodeItems(m["items"], 0)
	s.Style, _ = coerce.Map(m["style"])
	return s
}

func decodeItems(v any, depth int) []Item {
	list, ok := v.([]any)
	if !ok || depth >= maxDepth {
		return nil
	}
	items := make([]Item, 0, len(list))
	for _, raw := range list {
		m, ok := coerce.Map(raw)
		if !ok {
			continue
		}
		var it Item
		it.Label, _ = coerce.String(m["label"])
		it.URL, _ = coerce.String(m["url"])
		if n, ok := coerce.Int(m["target"]); ok && n > 0 {
			it.Target = int(n)
		}
		if icon, ok := coerce.String(m["icon"]); ok {
			it.Icon = coerce.Key(icon)
		}
		it.NewTab, _ = coerce.Bool(m["new_tab"])
		it.Current = parseCurrentMode(m["current"])
		it.Children = decodeItems(m["children"], depth+1)
		if it.Label == "" && !it.HasLink() && len(it.Children) == 0 {
			continue
		}
		items = append(items, it)
	}
	return items
}

// IsDynamic reports whether the rendered markup depends on the request.
//
// Search with a shortcode runs server-side code per render. With
// highlighting on, any item at any depth in auto mode that has a link makes
// the whole sidebar request-specific.
func IsDynamic(s Settings) bool {
	if s.Search.Enabled && strings.TrimSpace(s.Search.Shortcode) != "" {
		return true
	}
	if !s.HighlightCurrent {
		return false
	}
	return anyAutoLinked(s.Items)
}

func anyAutoLinked(items []Item) bool {
	for _, it := range items {
		if it.Current == CurrentAuto && it.HasLink() {
			return true
		}
		if anyAutoLinked(it.Children) {
			return true
		}
	}
	return false
}
