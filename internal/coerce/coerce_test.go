package coerce

import (
	"reflect"
	"testing"
)

func TestBool(t *testing.T) {
	tests := []struct {
		in     any
		want   bool
		wantOK bool
	}{
		{true, true, true},
		{false, false, true},
		{"yes", true, true},
		{" ON ", true, true},
		{"0", false, true},
		{"off", false, true},
		{"", false, true},
		{1, true, true},
		{0, false, true},
		{float64(0), false, true},
		{"maybe", false, false},
		{nil, false, false},
		{map[string]any{}, false, false},
	}

	for _, tt := range tests {
		got, ok := Bool(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Bool(%#v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in     any
		want   int64
		wantOK bool
	}{
		{10, 10, true},
		{float64(7.9), 7, true},
		{"42", 42, true},
		{" -3 ", -3, true},
		{"2.5", 2, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := Int(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Int(%#v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStrings(t *testing.T) {
	if got := Strings("page, post,,"); !reflect.DeepEqual(got, []string{"page", "post"}) {
		t.Errorf("Strings(csv) = %v", got)
	}
	if got := Strings([]any{"a", 3, nil, ""}); !reflect.DeepEqual(got, []string{"a", "3"}) {
		t.Errorf("Strings([]any) = %v", got)
	}
	if got := Strings(nil); got != nil {
		t.Errorf("Strings(nil) = %v, want nil", got)
	}
}

func TestInts(t *testing.T) {
	if got := Ints([]any{1, "2", "x", float64(3)}); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("Ints() = %v", got)
	}
	if got := Ints("4,5"); !reflect.DeepEqual(got, []int64{4, 5}) {
		t.Errorf("Ints(csv) = %v", got)
	}
}

func TestSortedSet(t *testing.T) {
	got := SortedSet([]string{"b", "a", "b", "c", "a"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("SortedSet() = %v", got)
	}
	if SortedSet(nil) != nil {
		t.Error("SortedSet(nil) should be nil")
	}
}

func TestSlugAndKey(t *testing.T) {
	if got := Slug("  Black Friday / 2024! "); got != "black-friday-2024" {
		t.Errorf("Slug() = %q", got)
	}
	if got := Key("Shop Manager"); got != "shopmanager" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key("custom_type-1"); got != "custom_type-1" {
		t.Errorf("Key() = %q", got)
	}
}

func TestMap(t *testing.T) {
	m, ok := Map(map[any]any{"a": 1, 2: "b"})
	if !ok || m["a"] != 1 || m["2"] != "b" {
		t.Errorf("Map() = %v, %v", m, ok)
	}
	if _, ok := Map("x"); ok {
		t.Error("Map(string) should not be ok")
	}
}

func TestPlain(t *testing.T) {
	in := map[string]any{
		"nested": map[any]any{"a": []any{map[any]any{1: "x"}}},
		"list":   []string{"p", "q"},
	}
	out, ok := Plain(in).(map[string]any)
	if !ok {
		t.Fatalf("Plain() returned %T", Plain(in))
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested = %T", out["nested"])
	}
	inner := nested["a"].([]any)[0]
	if m, ok := inner.(map[string]any); !ok || m["1"] != "x" {
		t.Errorf("inner = %#v", inner)
	}
	if list, ok := out["list"].([]any); !ok || len(list) != 2 {
		t.Errorf("list = %#v", out["list"])
	}

	rows, ok := Plain([]map[string]any{{"k": []string{"v"}}}).([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("rows = %#v", rows)
	}
	if row, ok := rows[0].(map[string]any); !ok || len(row["k"].([]any)) != 1 {
		t.Errorf("row = %#v", rows[0])
	}
}
