package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/kvstore"
	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/reqctx"
	"github.com/jonwraymond/sidenav/resilience"
)

type fixedContext reqctx.RequestContext

func (f fixedContext) Resolve(context.Context) reqctx.RequestContext {
	return reqctx.RequestContext(f)
}

var desktopEN = fixedContext{
	Language: "en_us",
	Device:   reqctx.DeviceDesktop,
	Weekday:  "mon",
	Minute:   600,
	URL:      "https://site.test/docs",
}

type countingRenderer struct {
	calls atomic.Int32
	fn    func(in Input) (string, error)
}

func (c *countingRenderer) Render(_ context.Context, in Input) (string, error) {
	c.calls.Add(1)
	if c.fn != nil {
		return c.fn(in)
	}
	return "<nav>" + in.ProfileID + "</nav>", nil
}

type errRepository struct{ err error }

func (e errRepository) Options(context.Context) (map[string]any, error)    { return nil, e.err }
func (e errRepository) Profiles(context.Context) ([]map[string]any, error) { return nil, nil }

func newOrchestrator(t *testing.T, repo profile.Repository, r Renderer, opts ...Option) (*Orchestrator, *cache.Store) {
	t.Helper()
	sel, err := profile.NewSelector(repo)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	store, err := cache.NewStore(kvstore.NewMemory())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	o, err := NewOrchestrator(sel, r, append([]Option{WithCache(store)}, opts...)...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o, store
}

func TestNewOrchestrator_Nil(t *testing.T) {
	sel, _ := profile.NewSelector(profile.StaticRepository{})
	if _, err := NewOrchestrator(nil, &countingRenderer{}); !errors.Is(err, ErrNilSelector) {
		t.Errorf("nil selector error = %v", err)
	}
	if _, err := NewOrchestrator(sel, nil); !errors.Is(err, ErrNilRenderer) {
		t.Errorf("nil renderer error = %v", err)
	}
}

func TestOrchestrator_FallbackMissThenHit(t *testing.T) {
	r := &countingRenderer{}
	o, store := newOrchestrator(t, profile.StaticRepository{Defaults: map[string]any{"title": "Menu"}}, r)
	ctx := context.Background()

	first, err := o.Render(ctx, desktopEN)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if first.Cache != CacheMiss || !first.IsFallback || first.ProfileID != profile.DefaultID {
		t.Errorf("first = %+v", first)
	}
	second, err := o.Render(ctx, desktopEN)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !second.Hit() || second.HTML != first.HTML {
		t.Errorf("second = %+v, want cache hit with same markup", second)
	}
	if r.calls.Load() != 1 {
		t.Errorf("renderer calls = %d, want 1", r.calls.Load())
	}

	entries := store.Entries(ctx)
	if len(entries) != 1 || entries[0].Suffix != "" || entries[0].Locale != "en_us" {
		t.Errorf("Entries() = %+v, want one en_us entry with empty suffix", entries)
	}
	if first.CacheKey != entries[0].Key {
		t.Errorf("CacheKey = %q, want %q", first.CacheKey, entries[0].Key)
	}
}

func TestOrchestrator_MatchedProfileSuffix(t *testing.T) {
	repo := profile.StaticRepository{Records: []map[string]any{
		{"id": "desk", "conditions": map[string]any{"devices": []any{"desktop"}}, "settings": map[string]any{"title": "Desk"}},
	}}
	o, store := newOrchestrator(t, repo, &countingRenderer{})
	ctx := context.Background()

	res, err := o.Render(ctx, desktopEN)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.ProfileID != "desk" || res.IsFallback || res.HTML != "<nav>desk</nav>" {
		t.Errorf("Render() = %+v", res)
	}
	if _, ok := store.Get(ctx, "en_us", "desk"); !ok {
		t.Error("entry should be stored under the profile id suffix")
	}
	if _, ok := store.Get(ctx, "en_us", ""); ok {
		t.Error("default entry should not exist")
	}
}

func TestOrchestrator_DynamicBypassesCache(t *testing.T) {
	repo := profile.StaticRepository{Defaults: map[string]any{
		"highlight_current": true,
		"items":             []any{map[string]any{"label": "Docs", "url": "/docs"}},
	}}
	r := &countingRenderer{}
	o, store := newOrchestrator(t, repo, r)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := o.Render(ctx, desktopEN)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !res.IsDynamic || res.Cache != CacheBypass || res.CacheKey != "" {
			t.Errorf("Render() = %+v, want dynamic bypass", res)
		}
	}
	if r.calls.Load() != 3 {
		t.Errorf("renderer calls = %d, want 3", r.calls.Load())
	}
	if n := len(store.Entries(ctx)); n != 0 {
		t.Errorf("dynamic render wrote %d cache entries", n)
	}
}

func TestOrchestrator_FailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(Input) (string, error)
		cause error
	}{
		{"error", func(Input) (string, error) { return "", errors.New("boom") }, nil},
		{"empty", func(Input) (string, error) { return "  \n", nil }, ErrEmptyOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, store := newOrchestrator(t, profile.StaticRepository{}, &countingRenderer{fn: tt.fn})
			ctx := context.Background()

			res, err := o.Render(ctx, desktopEN)
			if !errors.Is(err, ErrNoOutput) {
				t.Fatalf("Render() error = %v, want ErrNoOutput", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("Render() error = %v, want cause %v", err, tt.cause)
			}
			if res.HTML != "" {
				t.Errorf("HTML = %q, want empty", res.HTML)
			}
			if n := len(store.Entries(ctx)); n != 0 {
				t.Errorf("failed render wrote %d cache entries", n)
			}
		})
	}
}

func TestOrchestrator_SelectionError(t *testing.T) {
	boom := errors.New("db down")
	o, _ := newOrchestrator(t, errRepository{err: boom}, &countingRenderer{})

	_, err := o.Render(context.Background(), desktopEN)
	if !errors.Is(err, ErrNoOutput) || !errors.Is(err, boom) {
		t.Errorf("Render() error = %v, want ErrNoOutput wrapping cause", err)
	}
}

func TestOrchestrator_WithoutCache(t *testing.T) {
	sel, _ := profile.NewSelector(profile.StaticRepository{})
	r := &countingRenderer{}
	o, err := NewOrchestrator(sel, r)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		res, err := o.Render(context.Background(), desktopEN)
		if err != nil || res.Cache != CacheBypass {
			t.Fatalf("Render() = %+v, %v", res, err)
		}
	}
	if r.calls.Load() != 2 {
		t.Errorf("renderer calls = %d, want 2", r.calls.Load())
	}
}

func TestOrchestrator_ExecutorTimeout(t *testing.T) {
	slow := &countingRenderer{fn: func(Input) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "<nav/>", nil
	}}
	exec := resilience.NewExecutor(resilience.WithTimeout(10 * time.Millisecond))
	o, store := newOrchestrator(t, profile.StaticRepository{}, slow,
		WithExecutor(exec),
		WithMiddleware(observe.NewMiddleware(nil, nil, nil)))
	ctx := context.Background()

	_, err := o.Render(ctx, desktopEN)
	if !errors.Is(err, ErrNoOutput) || !errors.Is(err, resilience.ErrTimeout) {
		t.Errorf("Render() error = %v, want timeout", err)
	}
	if n := len(store.Entries(ctx)); n != 0 {
		t.Errorf("timed-out render wrote %d cache entries", n)
	}
}

func TestOrchestrator_ExecutorReturnsHTML(t *testing.T) {
	exec := resilience.NewExecutor(resilience.WithTimeout(time.Second))
	o, store := newOrchestrator(t, profile.StaticRepository{}, &countingRenderer{}, WithExecutor(exec))
	ctx := context.Background()

	res, err := o.Render(ctx, desktopEN)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "<nav>" + profile.DefaultID + "</nav>"
	if res.HTML != want {
		t.Errorf("HTML = %q, want %q", res.HTML, want)
	}
	if html, ok := store.Get(ctx, "en_us", ""); !ok || html != want {
		t.Errorf("cached = %q, %v", html, ok)
	}
}

func TestOrchestrator_CircuitOpens(t *testing.T) {
	failing := &countingRenderer{fn: func(Input) (string, error) { return "", errors.New("down") }}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	o, _ := newOrchestrator(t, profile.StaticRepository{}, failing,
		WithExecutor(resilience.NewExecutor(resilience.WithCircuitBreaker(cb))))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = o.Render(ctx, desktopEN)
	}
	_, err := o.Render(ctx, desktopEN)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Render() error = %v, want ErrCircuitOpen", err)
	}
	if failing.calls.Load() != 2 {
		t.Errorf("renderer calls = %d, want 2", failing.calls.Load())
	}
}

func TestOrchestrator_Decide(t *testing.T) {
	r := &countingRenderer{}
	o, _ := newOrchestrator(t, profile.StaticRepository{}, r)

	res, settings, err := o.Decide(context.Background(), desktopEN)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if res.Cache != CacheMiss || res.CacheKey == "" || settings.Title != "" {
		t.Errorf("Decide() = %+v, %+v", res, settings)
	}
	if r.calls.Load() != 0 {
		t.Error("Decide() should not render")
	}
}
