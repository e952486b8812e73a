package profile

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jonwraymond/sidenav/internal/coerce"
	"github.com/jonwraymond/sidenav/reqctx"
)

// TaxonomyRule requires the taxonomy to be present in the request and, when
// Terms is non-empty, at least one of the terms.
type TaxonomyRule struct {
	Taxonomy string `json:"taxonomy"`
	Terms    []int  `json:"terms,omitempty"`
}

// Schedule restricts matching to a daily time window and weekdays.
// Start and End are minutes since midnight; nil means unbounded.
type Schedule struct {
	Start *int     `json:"start,omitempty"`
	End   *int     `json:"end,omitempty"`
	Days  []string `json:"days,omitempty"`
}

// TimeConstrained reports whether a start or end time is set.
func (s Schedule) TimeConstrained() bool {
	return s.Start != nil || s.End != nil
}

// Matches reports whether minute-of-day and weekday fall in the schedule.
// A window with Start after End wraps past midnight.
func (s Schedule) Matches(weekday string, minute int) bool {
	if len(s.Days) > 0 && !slices.Contains(s.Days, weekday) {
		return false
	}
	if !s.TimeConstrained() {
		return true
	}
	start, end := 0, lastMinute
	if s.Start != nil {
		start = *s.Start
	}
	if s.End != nil {
		end = *s.End
	}
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

const lastMinute = 24*60 - 1

// Conditions is the closed set of targeting dimensions. A zero-valued
// dimension places no constraint.
type Conditions struct {
	ContentTypes []string        `json:"post_types,omitempty"`
	Taxonomies   []TaxonomyRule  `json:"taxonomies,omitempty"`
	Roles        []string        `json:"roles,omitempty"`
	Languages    []string        `json:"languages,omitempty"`
	Devices      []reqctx.Device `json:"devices,omitempty"`
	LoggedIn     *bool           `json:"logged_in,omitempty"`
	Schedule     Schedule        `json:"schedule"`
}

// Matches reports whether every constrained dimension accepts rc.
// An unknown authentication state is treated as logged out.
func (c Conditions) Matches(rc reqctx.RequestContext) bool {
	if len(c.ContentTypes) > 0 && !slices.ContainsFunc(c.ContentTypes, rc.HasContentType) {
		return false
	}
	for _, rule := range c.Taxonomies {
		terms, ok := rc.TaxonomyTerms(rule.Taxonomy)
		if !ok {
			return false
		}
		if len(rule.Terms) > 0 && !intersects(rule.Terms, terms) {
			return false
		}
	}
	if len(c.Roles) > 0 && !slices.ContainsFunc(c.Roles, rc.HasRole) {
		return false
	}
	if len(c.Languages) > 0 && !slices.Contains(c.Languages, rc.Language) {
		return false
	}
	if len(c.Devices) > 0 && !slices.Contains(c.Devices, rc.Device) {
		return false
	}
	if c.LoggedIn != nil {
		loggedIn, _ := rc.Auth.Bool()
		if loggedIn != *c.LoggedIn {
			return false
		}
	}
	return c.Schedule.Matches(rc.Weekday, rc.Minute)
}

// Specificity scores how narrowly the conditions target traffic.
func (c Conditions) Specificity() int {
	score := len(c.ContentTypes) + len(c.Roles) + len(c.Languages) + len(c.Devices)
	if c.LoggedIn != nil {
		score++
	}
	for _, rule := range c.Taxonomies {
		score += 1 + len(rule.Terms)
	}
	if c.Schedule.TimeConstrained() {
		score++
	}
	return score + len(c.Schedule.Days)
}

// IsEmpty reports whether no dimension is constrained.
func (c Conditions) IsEmpty() bool {
	return c.Specificity() == 0
}

// ParseConditions reads a raw conditions map. Malformed values on any
// dimension leave that dimension unconstrained.
func ParseConditions(raw map[string]any) Conditions {
	var c Conditions
	if raw == nil {
		return c
	}

	types := raw["post_types"]
	if types == nil {
		types = raw["content_types"]
	}
	c.ContentTypes = keySet(types)
	c.Roles = keySet(raw["roles"])
	c.Taxonomies = parseTaxonomies(raw["taxonomies"])

	for _, l := range coerce.Strings(raw["languages"]) {
		if n := reqctx.NormalizeLocale(l); n != "" {
			c.Languages = append(c.Languages, n)
		}
	}
	c.Languages = coerce.SortedSet(c.Languages)

	for _, d := range coerce.SortedSet(keySet(raw["devices"])) {
		if dev := reqctx.Device(d); dev.Valid() {
			c.Devices = append(c.Devices, dev)
		}
	}

	c.LoggedIn = parseTriState(raw["logged_in"])

	if sched, ok := coerce.Map(raw["schedule"]); ok {
		c.Schedule = parseSchedule(sched)
	}
	return c
}

func keySet(v any) []string {
	var out []string
	for _, s := range coerce.Strings(v) {
		if k := coerce.Key(s); k != "" {
			out = append(out, k)
		}
	}
	return coerce.SortedSet(out)
}

func parseTaxonomies(v any) []TaxonomyRule {
	var rules []TaxonomyRule
	add := func(tax string, terms any) {
		tax = coerce.Key(tax)
		if tax == "" {
			return
		}
		rules = append(rules, TaxonomyRule{Taxonomy: tax, Terms: termIDs(terms)})
	}

	switch val := coerce.Plain(v).(type) {
	case []any:
		for _, item := range val {
			entry, ok := coerce.Map(item)
			if !ok {
				continue
			}
			name, _ := coerce.String(entry["taxonomy"])
			add(name, entry["terms"])
		}
	default:
		m, ok := coerce.Map(val)
		if !ok {
			return nil
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			add(name, m[name])
		}
	}
	return rules
}

func termIDs(v any) []int {
	ids := coerce.SortedInts(coerce.Ints(v))
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

func parseTriState(v any) *bool {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "any", "null":
			return nil
		}
	}
	b, ok := coerce.Bool(v)
	if !ok {
		return nil
	}
	return &b
}

func parseSchedule(m map[string]any) Schedule {
	var s Schedule
	s.Start = parseClock(m["start"])
	s.End = parseClock(m["end"])

	var days []string
	for _, d := range coerce.Strings(m["days"]) {
		if code, ok := dayCode(d); ok {
			days = append(days, code)
		}
	}
	s.Days = coerce.SortedSet(days)
	return s
}

// parseClock reads "HH:MM" into minutes since midnight. Anything else,
// including out-of-range hours or minutes, is treated as absent.
func parseClock(v any) *int {
	str, ok := v.(string)
	if !ok {
		return nil
	}
	hh, mm, found := strings.Cut(strings.TrimSpace(str), ":")
	if !found || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return nil
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return nil
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return nil
	}
	minutes := h*60 + m
	return &minutes
}

var dayNames = map[string]string{
	"mon": "mon", "monday": "mon",
	"tue": "tue", "tuesday": "tue",
	"wed": "wed", "wednesday": "wed",
	"thu": "thu", "thursday": "thu",
	"fri": "fri", "friday": "fri",
	"sat": "sat", "saturday": "sat",
	"sun": "sun", "sunday": "sun",
}

func dayCode(s string) (string, bool) {
	code, ok := dayNames[strings.ToLower(strings.TrimSpace(s))]
	return code, ok
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if _, ok := slices.BinarySearch(b, x); ok {
			return true
		}
	}
	return false
}
