package render

import (
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonwraymond/sidenav/internal/coerce"
)

// StyleKind enumerates the supported style settings.
type StyleKind int

const (
	StyleWidth StyleKind = iota
	StyleBackground
	StyleTextColor
	StyleAccentColor
	StyleFontSize
	StyleRadius
	StylePosition
	numStyleKinds
)

// styleTransform validates a raw setting and returns the CSS custom
// property value. ok is false when the value is rejected.
type styleTransform func(raw any) (value string, ok bool)

type styleStrategy struct {
	key       string
	property  string
	transform styleTransform
}

var styleTable = [numStyleKinds]styleStrategy{
	StyleWidth:       {"width", "--sidenav-width", lengthValue},
	StyleBackground:  {"background", "--sidenav-bg", colorValue},
	StyleTextColor:   {"text_color", "--sidenav-color", colorValue},
	StyleAccentColor: {"accent_color", "--sidenav-accent", colorValue},
	StyleFontSize:    {"font_size", "--sidenav-font-size", lengthValue},
	StyleRadius:      {"radius", "--sidenav-radius", lengthValue},
	StylePosition:    {"position", "--sidenav-side", positionValue},
}

// String returns the settings key for k.
func (k StyleKind) String() string {
	if k < 0 || k >= numStyleKinds {
		return "unknown"
	}
	return styleTable[k].key
}

// ParseStyleKind maps a settings key to its StyleKind.
func ParseStyleKind(key string) (StyleKind, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for k := StyleKind(0); k < numStyleKinds; k++ {
		if styleTable[k].key == key {
			return k, true
		}
	}
	return 0, false
}

// Styles is the set of accepted style values keyed by kind.
type Styles [numStyleKinds]string

// ParseStyles applies the strategy table to raw settings. Unknown keys and
// rejected values are dropped.
func ParseStyles(raw map[string]any) Styles {
	var out Styles
	for key, v := range raw {
		kind, ok := ParseStyleKind(key)
		if !ok {
			continue
		}
		if val, ok := styleTable[kind].transform(v); ok {
			out[kind] = val
		}
	}
	return out
}

// Get returns the accepted value for k.
func (s Styles) Get(k StyleKind) string {
	if k < 0 || k >= numStyleKinds {
		return ""
	}
	return s[k]
}

// CSS renders the accepted values as custom property declarations in
// table order.
func (s Styles) CSS() template.CSS {
	var b strings.Builder
	for k := StyleKind(0); k < numStyleKinds; k++ {
		if s[k] == "" {
			continue
		}
		b.WriteString(styleTable[k].property)
		b.WriteByte(':')
		b.WriteString(s[k])
		b.WriteByte(';')
	}
	// Values are validated by the transforms above.
	return template.CSS(b.String())
}

var (
	lengthRe   = regexp.MustCompile(`^\d{1,4}(\.\d{1,3})?(px|rem|em|%|vw|vh)$`)
	hexColorRe = regexp.MustCompile(`^#([0-9a-f]{3}|[0-9a-f]{4}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	rgbColorRe = regexp.MustCompile(`^rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(,\s*(0|1|0?\.\d+)\s*)?\)$`)
	namedRe    = regexp.MustCompile(`^[a-z]{3,20}$`)
)

func lengthValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case int, int64, float64:
		n, _ := coerce.Int(v)
		if n <= 0 || n > 9999 {
			return "", false
		}
		return strconv.FormatInt(n, 10) + "px", true
	}
	s, ok := coerce.String(raw)
	if !ok {
		return "", false
	}
	s = strings.ToLower(s)
	if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 9999 {
		return s + "px", true
	}
	if lengthRe.MatchString(s) {
		return s, true
	}
	return "", false
}

func colorValue(raw any) (string, bool) {
	s, ok := coerce.String(raw)
	if !ok {
		return "", false
	}
	s = strings.ToLower(s)
	if hexColorRe.MatchString(s) || rgbColorRe.MatchString(s) || namedRe.MatchString(s) {
		return s, true
	}
	return "", false
}

func positionValue(raw any) (string, bool) {
	s, _ := coerce.String(raw)
	switch s = strings.ToLower(s); s {
	case "left", "right":
		return s, true
	}
	return "", false
}
