package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/resilience"
)

// Orchestrator errors.
var (
	// ErrNoOutput means the sidebar should not be displayed. The cause is
	// wrapped alongside it.
	ErrNoOutput    = errors.New("render: no output")
	ErrNilSelector = errors.New("render: selector is nil")
	ErrNilRenderer = errors.New("render: renderer is nil")
)

// CacheStatus describes how a result was produced.
type CacheStatus string

const (
	CacheHit    CacheStatus = "hit"
	CacheMiss   CacheStatus = "miss"
	CacheBypass CacheStatus = "bypass"
)

// Result is the outcome of one render.
type Result struct {
	HTML       string         `json:"html"`
	ProfileID  string         `json:"profile_id"`
	IsFallback bool           `json:"is_fallback"`
	IsDynamic  bool           `json:"is_dynamic"`
	Locale     string         `json:"locale"`
	CacheKey   string         `json:"cache_key,omitempty"`
	Cache      CacheStatus    `json:"cache"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// Hit reports whether the markup came from the cache.
func (r Result) Hit() bool { return r.Cache == CacheHit }

// Orchestrator ties profile selection, the fragment cache and the renderer
// together.
//
// Contract:
// - Dynamic renders never read or write the cache.
// - Failed or empty renders are never cached and return ErrNoOutput.
// - Concurrency: safe for concurrent use; concurrent misses on one key may
// all render and overwrite each other.
type Orchestrator struct {
	selector *profile.Selector
	renderer Renderer
	store    *cache.Store
	exec     *resilience.Executor
	mw       *observe.Middleware
	logger   observe.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache enables fragment caching. Without it every render is fresh.
func WithCache(s *cache.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithExecutor guards renderer calls with timeouts and a circuit breaker.
func WithExecutor(e *resilience.Executor) Option {
	return func(o *Orchestrator) { o.exec = e }
}

// WithMiddleware wraps renderer calls with tracing, metrics and logging.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *Orchestrator) { o.mw = mw }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l observe.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(selector *profile.Selector, renderer Renderer, opts ...Option) (*Orchestrator, error) {
	if selector == nil {
		return nil, ErrNilSelector
	}
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	o := &Orchestrator{
		selector: selector,
		renderer: renderer,
		logger:   observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Decide resolves the profile and cache eligibility without rendering.
func (o *Orchestrator) Decide(ctx context.Context, res profile.ContextResolver) (Result, Settings, error) {
	sel, err := o.selector.Select(ctx, res)
	if err != nil {
		return Result{}, Settings{}, err
	}
	settings := DecodeSettings(sel.Settings)
	rc := res.Resolve(ctx)

	result := Result{
		ProfileID:  sel.ID,
		IsFallback: sel.IsFallback,
		IsDynamic:  IsDynamic(settings),
		Locale:     rc.Language,
		Cache:      CacheBypass,
		Settings:   sel.Settings,
	}
	if !result.IsDynamic && o.store != nil {
		key, err := o.store.Key(rc.Language, Suffix(sel))
		if err == nil {
			result.CacheKey = key
			result.Cache = CacheMiss
		}
	}
	return result, settings, nil
}

// Suffix is the cache suffix for a selection: the profile id, or empty for
// the default profile.
func Suffix(sel profile.Selection) string {
	if sel.IsFallback {
		return ""
	}
	return sel.ID
}

// Render produces the sidebar for the request described by res.
func (o *Orchestrator) Render(ctx context.Context, res profile.ContextResolver) (Result, error) {
	result, settings, err := o.Decide(ctx, res)
	if err != nil {
		o.logger.Error(ctx, "sidebar profile selection failed", observe.F("error", err))
		return Result{}, fmt.Errorf("%w: %w", ErrNoOutput, err)
	}
	suffix := Suffix(profile.Selection{ID: result.ProfileID, IsFallback: result.IsFallback})

	cacheable := result.Cache == CacheMiss
	if cacheable {
		if html, ok := o.store.Get(ctx, result.Locale, suffix); ok {
			result.HTML = html
			result.Cache = CacheHit
			return result, nil
		}
	}

	in := Input{
		Settings:  settings,
		Context:   res.Resolve(ctx),
		ProfileID: result.ProfileID,
		Dynamic:   result.IsDynamic,
	}
	html, err := o.render(ctx, in, result.Locale)
	if err == nil && strings.TrimSpace(html) == "" {
		err = ErrEmptyOutput
	}
	if err != nil {
		o.logger.Error(ctx, "sidebar render produced no output",
			observe.F("profile", result.ProfileID),
			observe.F("locale", result.Locale),
			observe.F("error", err))
		result.HTML = ""
		return result, fmt.Errorf("%w: %w", ErrNoOutput, err)
	}
	result.HTML = html

	if cacheable {
		if err := o.store.Set(ctx, result.Locale, html, suffix); err != nil {
			o.logger.Warn(ctx, "sidebar cache write failed",
				observe.F("key", result.CacheKey),
				observe.F("error", err))
		}
	}
	return result, nil
}

func (o *Orchestrator) render(ctx context.Context, in Input, locale string) (string, error) {
	fn := func(ctx context.Context, _ observe.RenderMeta) (string, error) {
		return resilience.Call(ctx, o.exec, func(ctx context.Context) (string, error) {
			return o.renderer.Render(ctx, in)
		})
	}
	if o.mw != nil {
		fn = o.mw.Wrap(fn)
	}
	return fn(ctx, observe.RenderMeta{
		Locale:    locale,
		ProfileID: in.ProfileID,
		Dynamic:   in.Dynamic,
	})
}
