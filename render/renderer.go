package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/reqctx"
)

// Renderer errors.
var (
	ErrTemplateMissing = errors.New("render: template is missing")
	ErrEmptyOutput     = errors.New("render: renderer produced no output")
)

// Input is everything a Renderer needs.
type Input struct {
	Settings  Settings
	Context   reqctx.RequestContext
	ProfileID string
	Dynamic   bool
}

// Renderer turns selected settings into markup.
type Renderer interface {
	Render(ctx context.Context, in Input) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, in Input) (string, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, in Input) (string, error) { return f(ctx, in) }

// LinkResolver maps a content id to its URL.
type LinkResolver interface {
	Link(ctx context.Context, target int) (string, error)
}

// LinkResolverFunc adapts a function to LinkResolver.
type LinkResolverFunc func(ctx context.Context, target int) (string, error)

// Link calls f.
func (f LinkResolverFunc) Link(ctx context.Context, target int) (string, error) { return f(ctx, target) }

// ShortcodeRunner executes a search shortcode and returns its markup.
type ShortcodeRunner interface {
	Run(ctx context.Context, shortcode string) (string, error)
}

// ShortcodeRunnerFunc adapts a function to ShortcodeRunner.
type ShortcodeRunnerFunc func(ctx context.Context, shortcode string) (string, error)

// Run calls f.
func (f ShortcodeRunnerFunc) Run(ctx context.Context, shortcode string) (string, error) {
	return f(ctx, shortcode)
}

// InertHref replaces links that cannot be resolved.
const InertHref = "#"

const defaultTemplate = `{{define "items"}}<ul class="sidenav-list">{{range .}}<li class="sidenav-item{{if .Current}} is-current{{end}}">` +
	`<a href="{{.Href}}"{{if .Current}} aria-current="page"{{end}}{{if .NewTab}} target="_blank" rel="noopener"{{end}}>` +
	`{{if .Icon}}<span class="sidenav-icon sidenav-icon-{{.Icon}}" aria-hidden="true"></span>{{end}}{{.Label}}</a>` +
	`{{if .Children}}{{template "items" .Children}}{{end}}</li>{{end}}</ul>{{end}}` +
	`<nav class="sidenav sidenav-{{.Side}}" data-profile="{{.ProfileID}}"{{if .Style}} style="{{.Style}}"{{end}}>` +
	`{{if .Title}}<h2 class="sidenav-title">{{.Title}}</h2>{{end}}` +
	`{{if .Search}}<div class="sidenav-search">{{.Search}}</div>{{end}}` +
	`{{if .Items}}{{template "items" .Items}}{{end}}</nav>`

type itemView struct {
	Label    string
	Href     template.URL
	Icon     string
	NewTab   bool
	Current  bool
	Children []itemView
}

type pageView struct {
	Title     string
	ProfileID string
	Side      string
	Style     template.CSS
	Search    template.HTML
	Items     []itemView
}

// TemplateRenderer renders with html/template.
type TemplateRenderer struct {
	tmpl      *template.Template
	links     LinkResolver
	shortcode ShortcodeRunner
	logger    observe.Logger
}

// TemplateOption configures a TemplateRenderer.
type TemplateOption func(*TemplateRenderer)

// WithTemplate replaces the built-in template. A nil template makes every
// render fail with ErrTemplateMissing.
func WithTemplate(t *template.Template) TemplateOption {
	return func(r *TemplateRenderer) { r.tmpl = t }
}

// WithLinkResolver sets the resolver for content-id targets.
func WithLinkResolver(l LinkResolver) TemplateOption {
	return func(r *TemplateRenderer) { r.links = l }
}

// WithShortcodeRunner sets the search shortcode runner.
func WithShortcodeRunner(s ShortcodeRunner) TemplateOption {
	return func(r *TemplateRenderer) { r.shortcode = s }
}

// WithRendererLogger sets the logger for degraded links.
func WithRendererLogger(l observe.Logger) TemplateOption {
	return func(r *TemplateRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewTemplateRenderer creates a renderer using the built-in template
// unless WithTemplate is given.
func NewTemplateRenderer(opts ...TemplateOption) *TemplateRenderer {
	r := &TemplateRenderer{
		tmpl:   template.Must(template.New("sidenav").Parse(defaultTemplate)),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseTemplate parses a custom sidebar template. The template receives the
// same view as the built-in one.
func ParseTemplate(text string) (*template.Template, error) {
	t, err := template.New("sidenav").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("render: parse template: %w", err)
	}
	return t, nil
}

// Render implements Renderer.
func (r *TemplateRenderer) Render(ctx context.Context, in Input) (string, error) {
	if r.tmpl == nil {
		return "", ErrTemplateMissing
	}

	styles := ParseStyles(in.Settings.Style)
	side := styles.Get(StylePosition)
	if side == "" {
		side = "left"
	}
	view := pageView{
		Title:     in.Settings.Title,
		ProfileID: in.ProfileID,
		Side:      side,
		Style:     styles.CSS(),
		Items:     r.items(ctx, in, in.Settings.Items),
	}

	if in.Settings.Search.Enabled {
		search, err := r.search(ctx, in.Settings.Search)
		if err != nil {
			return "", err
		}
		view.Search = search
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return buf.String(), nil
}

func (r *TemplateRenderer) search(ctx context.Context, s Search) (template.HTML, error) {
	if code := strings.TrimSpace(s.Shortcode); code != "" && r.shortcode != nil {
		out, err := r.shortcode.Run(ctx, code)
		if err != nil {
			return "", fmt.Errorf("render: search shortcode: %w", err)
		}
		// Shortcode output is trusted server-side markup.
		return template.HTML(out), nil
	}
	placeholder := s.Placeholder
	if placeholder == "" {
		placeholder = "Search"
	}
	return template.HTML(`<form role="search" method="get" action="/"><input type="search" name="s" placeholder="` +
		template.HTMLEscapeString(placeholder) + `"></form>`), nil
}

func (r *TemplateRenderer) items(ctx context.Context, in Input, items []Item) []itemView {
	if len(items) == 0 {
		return nil
	}
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		href := r.href(ctx, it)
		out = append(out, itemView{
			Label:    it.Label,
			Href:     template.URL(href),
			Icon:     it.Icon,
			NewTab:   it.NewTab,
			Current:  in.Settings.HighlightCurrent && isCurrent(it, href, in.Context),
			Children: r.items(ctx, in, it.Children),
		})
	}
	return out
}

// linkSchemes are the URL schemes emitted verbatim. Relative links carry no
// scheme and are always kept.
var linkSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// href resolves an item's link as authored. Resolution failures and schemes
// outside linkSchemes degrade to InertHref.
func (r *TemplateRenderer) href(ctx context.Context, it Item) string {
	link := it.URL
	if link == "" && it.Target != 0 {
		if r.links == nil {
			return InertHref
		}
		resolved, err := r.links.Link(ctx, it.Target)
		if err != nil || strings.TrimSpace(resolved) == "" {
			r.logger.Warn(ctx, "sidebar link unresolved", observe.F("target", it.Target), observe.F("error", err))
			return InertHref
		}
		link = resolved
	}
	link = strings.TrimSpace(link)
	if link == "" {
		return InertHref
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "" && !linkSchemes[strings.ToLower(u.Scheme)]) {
		r.logger.Warn(ctx, "sidebar link rejected", observe.F("label", it.Label))
		return InertHref
	}
	return link
}

func isCurrent(it Item, href string, rc reqctx.RequestContext) bool {
	switch it.Current {
	case CurrentAlways:
		return true
	case CurrentNever:
		return false
	}
	if it.Target != 0 && rc.HasContentID(it.Target) {
		return true
	}
	if href == InertHref || rc.URL == "" {
		return false
	}
	return reqctx.NormalizeURL(href, rc.URL) == rc.URL
}

var _ Renderer = (*TemplateRenderer)(nil)
