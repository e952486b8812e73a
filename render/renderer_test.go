package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/sidenav/reqctx"
)

func renderString(t *testing.T, r *TemplateRenderer, in Input) string {
	t.Helper()
	out, err := r.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestTemplateRenderer_Basic(t *testing.T) {
	r := NewTemplateRenderer()
	out := renderString(t, r, Input{
		ProfileID: "docs",
		Settings: Settings{
			Title: "Docs <b>",
			Items: []Item{
				{Label: "Home", URL: "/", Icon: "house"},
				{Label: "Ext", URL: "https://example.com/x", NewTab: true},
			},
			Style: map[string]any{"position": "right", "width": 300},
		},
	})

	for _, want := range []string{
		`<nav class="sidenav sidenav-right" data-profile="docs"`,
		`style="--sidenav-width:300px;--sidenav-side:right;"`,
		`Docs &lt;b&gt;`,
		`<a href="/">`,
		`sidenav-icon-house`,
		`target="_blank" rel="noopener"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sidenav-search") {
		t.Error("search block rendered while disabled")
	}
}

func TestTemplateRenderer_LinkFallback(t *testing.T) {
	links := LinkResolverFunc(func(_ context.Context, target int) (string, error) {
		switch target {
		case 1:
			return "/found", nil
		case 2:
			return "", nil
		default:
			return "", errors.New("gone")
		}
	})
	r := NewTemplateRenderer(WithLinkResolver(links))
	out := renderString(t, r, Input{Settings: Settings{Items: []Item{
		{Label: "ok", Target: 1},
		{Label: "empty", Target: 2},
		{Label: "broken", Target: 3},
		{Label: "script", URL: "JavaScript:alert(1)"},
	}}})

	if !strings.Contains(out, `href="/found"`) {
		t.Errorf("resolved link missing:\n%s", out)
	}
	if n := strings.Count(out, `href="#"`); n != 3 {
		t.Errorf("inert links = %d, want 3:\n%s", n, out)
	}
}

func TestTemplateRenderer_LinkSchemes(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"data:text/html,<script>alert(1)</script>", `href="#"`},
		{"vbscript:msgbox(1)", `href="#"`},
		{"java\tscript:alert(1)", `href="#"`},
		{"file:///etc/passwd", `href="#"`},
		{"mailto:help@example.com", `href="mailto:help@example.com"`},
		{"tel:5551234", `href="tel:5551234"`},
		{"https://example.com/a", `href="https://example.com/a"`},
		{"docs/intro", `href="docs/intro"`},
	}
	r := NewTemplateRenderer()
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			out := renderString(t, r, Input{Settings: Settings{Items: []Item{{Label: "x", URL: tt.url}}}})
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %s:\n%s", tt.want, out)
			}
		})
	}
}

func TestTemplateRenderer_NoLinkResolver(t *testing.T) {
	r := NewTemplateRenderer()
	out := renderString(t, r, Input{Settings: Settings{Items: []Item{{Label: "x", Target: 5}}}})
	if !strings.Contains(out, `href="#"`) {
		t.Errorf("target without resolver should be inert:\n%s", out)
	}
}

func TestTemplateRenderer_CurrentHighlight(t *testing.T) {
	rc := reqctx.RequestContext{URL: "https://site.test/docs", ContentIDs: []int{9}}
	r := NewTemplateRenderer(WithLinkResolver(LinkResolverFunc(func(context.Context, int) (string, error) {
		return "/elsewhere", nil
	})))
	in := Input{Context: rc, Settings: Settings{HighlightCurrent: true, Items: []Item{
		{Label: "by-url", URL: "/docs/"},
		{Label: "by-id", Target: 9},
		{Label: "other", URL: "/other"},
		{Label: "forced", URL: "/other", Current: CurrentAlways},
		{Label: "suppressed", URL: "/docs", Current: CurrentNever},
	}}}
	out := renderString(t, r, in)
	if n := strings.Count(out, `aria-current="page"`); n != 3 {
		t.Errorf("current items = %d, want 3:\n%s", n, out)
	}

	in.Settings.HighlightCurrent = false
	out = renderString(t, r, in)
	if strings.Contains(out, "aria-current") {
		t.Errorf("highlight off still marks items:\n%s", out)
	}
}

func TestTemplateRenderer_Search(t *testing.T) {
	t.Run("default form", func(t *testing.T) {
		out := renderString(t, NewTemplateRenderer(), Input{Settings: Settings{
			Search: Search{Enabled: true, Placeholder: `"quoted"`},
		}})
		if !strings.Contains(out, `role="search"`) || !strings.Contains(out, "&#34;quoted&#34;") {
			t.Errorf("default search form wrong:\n%s", out)
		}
	})
	t.Run("shortcode", func(t *testing.T) {
		runner := ShortcodeRunnerFunc(func(_ context.Context, code string) (string, error) {
			return `<div id="sc">` + code + `</div>`, nil
		})
		out := renderString(t, NewTemplateRenderer(WithShortcodeRunner(runner)), Input{Settings: Settings{
			Search: Search{Enabled: true, Shortcode: "[search]"},
		}})
		if !strings.Contains(out, `<div id="sc">[search]</div>`) {
			t.Errorf("shortcode output missing:\n%s", out)
		}
	})
	t.Run("shortcode error", func(t *testing.T) {
		runner := ShortcodeRunnerFunc(func(context.Context, string) (string, error) {
			return "", errors.New("boom")
		})
		_, err := NewTemplateRenderer(WithShortcodeRunner(runner)).Render(context.Background(), Input{
			Settings: Settings{Search: Search{Enabled: true, Shortcode: "[search]"}},
		})
		if err == nil {
			t.Error("shortcode failure should fail the render")
		}
	})
}

func TestTemplateRenderer_CustomTemplate(t *testing.T) {
	tmpl, err := ParseTemplate(`<aside>{{.Title}}</aside>`)
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	out := renderString(t, NewTemplateRenderer(WithTemplate(tmpl)), Input{Settings: Settings{Title: "T"}})
	if out != "<aside>T</aside>" {
		t.Errorf("Render() = %q", out)
	}

	if _, err := ParseTemplate(`{{.Title`); err == nil {
		t.Error("ParseTemplate() should reject malformed templates")
	}
	_, err = NewTemplateRenderer(WithTemplate(nil)).Render(context.Background(), Input{})
	if !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("nil template error = %v, want ErrTemplateMissing", err)
	}
}
