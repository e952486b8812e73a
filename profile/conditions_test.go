package profile

import (
	"testing"

	"github.com/jonwraymond/sidenav/reqctx"
)

func TestSchedule_WrapAround(t *testing.T) {
	c := ParseConditions(map[string]any{
		"schedule": map[string]any{"start": "22:00", "end": "02:00"},
	})
	tests := []struct {
		minute int
		want   bool
	}{
		{23 * 60, true},
		{1 * 60, true},
		{22 * 60, true},
		{2 * 60, true},
		{12 * 60, false},
		{2*60 + 1, false},
	}
	for _, tt := range tests {
		if got := c.Schedule.Matches("wed", tt.minute); got != tt.want {
			t.Errorf("Matches(minute=%d) = %v, want %v", tt.minute, got, tt.want)
		}
	}
}

func TestSchedule_OpenEnded(t *testing.T) {
	c := ParseConditions(map[string]any{"schedule": map[string]any{"start": "18:00"}})
	if c.Schedule.Matches("mon", 17*60) || !c.Schedule.Matches("mon", 23*60) {
		t.Error("start-only window should cover start..23:59")
	}
	c = ParseConditions(map[string]any{"schedule": map[string]any{"end": "06:30"}})
	if !c.Schedule.Matches("mon", 0) || c.Schedule.Matches("mon", 7*60) {
		t.Error("end-only window should cover 00:00..end")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"9:05", 9*60 + 5, true},
		{"23:59", 23*60 + 59, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"12", 0, false},
		{1200, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got := parseClock(tt.in)
		if (got != nil) != tt.ok || (got != nil && *got != tt.want) {
			t.Errorf("parseClock(%v) = %v, want %d/%v", tt.in, got, tt.want, tt.ok)
		}
	}
}

func TestParseConditions_MalformedDegrades(t *testing.T) {
	c := ParseConditions(map[string]any{
		"post_types": 42.5,
		"taxonomies": "not-a-list",
		"devices":    []any{"tablet", "toaster"},
		"logged_in":  "maybe",
		"schedule":   map[string]any{"start": "25:00", "end": "xx", "days": []any{"someday"}},
		"languages":  map[string]any{"bad": true},
	})
	if c.Specificity() != 1 {
		// post_types 42.5 coerces to the key "425".
		t.Errorf("Specificity() = %d, want 1", c.Specificity())
	}
	c.ContentTypes = nil
	if !c.IsEmpty() {
		t.Errorf("malformed dimensions should be unconstrained, got %+v", c)
	}
	if !c.Matches(reqctx.RequestContext{}) {
		t.Error("unconstrained conditions should match")
	}
}

func TestParseConditions_Aliases(t *testing.T) {
	c := ParseConditions(map[string]any{
		"content_types": "Page, Post ,page",
		"roles":         []any{"Editor"},
		"languages":     []any{"en-US", "fr_FR"},
		"devices":       "Mobile",
		"logged_in":     "1",
		"schedule":      map[string]any{"days": []any{"Friday", "sat", "fri"}},
	})
	if len(c.ContentTypes) != 2 || c.ContentTypes[0] != "page" {
		t.Errorf("ContentTypes = %v", c.ContentTypes)
	}
	if len(c.Roles) != 1 || c.Roles[0] != "editor" {
		t.Errorf("Roles = %v", c.Roles)
	}
	if len(c.Languages) != 2 || c.Languages[0] != "en_us" {
		t.Errorf("Languages = %v", c.Languages)
	}
	if len(c.Devices) != 1 || c.Devices[0] != reqctx.DeviceMobile {
		t.Errorf("Devices = %v", c.Devices)
	}
	if c.LoggedIn == nil || !*c.LoggedIn {
		t.Errorf("LoggedIn = %v", c.LoggedIn)
	}
	if len(c.Schedule.Days) != 2 {
		t.Errorf("Days = %v", c.Schedule.Days)
	}
	// 2 types + 1 role + 2 languages + 1 device + logged_in + 2 days
	if got := c.Specificity(); got != 9 {
		t.Errorf("Specificity() = %d, want 9", got)
	}
}

func TestParseConditions_Taxonomies(t *testing.T) {
	list := ParseConditions(map[string]any{"taxonomies": []any{
		map[string]any{"taxonomy": "category", "terms": []any{3, "4"}},
		map[string]any{"taxonomy": "post_tag"},
		map[string]any{"terms": []any{1}},
	}})
	if len(list.Taxonomies) != 2 {
		t.Fatalf("Taxonomies = %+v", list.Taxonomies)
	}
	if got := list.Specificity(); got != 4 {
		t.Errorf("Specificity() = %d, want 4", got)
	}

	byMap := ParseConditions(map[string]any{"taxonomies": map[string]any{
		"post_tag": nil,
		"category": "3,4",
	}})
	if len(byMap.Taxonomies) != 2 || byMap.Taxonomies[0].Taxonomy != "category" {
		t.Errorf("Taxonomies = %+v", byMap.Taxonomies)
	}

	rc := reqctx.RequestContext{Terms: map[string][]int{"category": {4, 9}, "post_tag": {}}}
	if !list.Matches(rc) || !byMap.Matches(rc) {
		t.Error("expected taxonomy match")
	}
	rc.Terms = map[string][]int{"category": {9}, "post_tag": {}}
	if list.Matches(rc) {
		t.Error("no shared term should not match")
	}
	rc.Terms = map[string][]int{"category": {3}}
	if list.Matches(rc) {
		t.Error("missing taxonomy should not match")
	}
}

func TestParseConditions_TypedTaxonomies(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"slice of maps", []map[string]any{
			{"taxonomy": "category", "terms": []int{3, 4}},
			{"taxonomy": "post_tag"},
		}},
		{"yaml keyed map", map[any]any{"category": []any{3, 4}, "post_tag": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ParseConditions(map[string]any{"taxonomies": tt.raw})
			if len(c.Taxonomies) != 2 {
				t.Fatalf("Taxonomies = %+v", c.Taxonomies)
			}
			rc := reqctx.RequestContext{Terms: map[string][]int{"category": {9}, "post_tag": {}}}
			if c.Matches(rc) {
				t.Error("taxonomy constraint dropped")
			}
			rc.Terms["category"] = []int{4}
			if !c.Matches(rc) {
				t.Error("expected taxonomy match")
			}
		})
	}
}

func TestConditions_Matches(t *testing.T) {
	yes, no := true, false
	base := reqctx.RequestContext{
		ContentTypes: []string{"page"},
		Roles:        []string{"editor"},
		Language:     "en_us",
		Device:       reqctx.DeviceMobile,
		Auth:         reqctx.AuthLoggedIn,
		Weekday:      "fri",
		Minute:       600,
	}
	tests := []struct {
		name string
		c    Conditions
		rc   reqctx.RequestContext
		want bool
	}{
		{"empty", Conditions{}, base, true},
		{"type hit", Conditions{ContentTypes: []string{"page", "post"}}, base, true},
		{"type miss", Conditions{ContentTypes: []string{"post"}}, base, false},
		{"role miss", Conditions{Roles: []string{"admin"}}, base, false},
		{"language hit", Conditions{Languages: []string{"en_us"}}, base, true},
		{"language miss", Conditions{Languages: []string{"en"}}, base, false},
		{"device miss", Conditions{Devices: []reqctx.Device{reqctx.DeviceDesktop}}, base, false},
		{"logged in", Conditions{LoggedIn: &yes}, base, true},
		{"logged out wanted", Conditions{LoggedIn: &no}, base, false},
		{"unknown auth is logged out", Conditions{LoggedIn: &no}, reqctx.RequestContext{Auth: reqctx.AuthUnknown}, true},
		{"and across dimensions", Conditions{ContentTypes: []string{"page"}, Roles: []string{"admin"}}, base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Matches(tt.rc); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
