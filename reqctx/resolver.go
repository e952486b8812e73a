package reqctx

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/observe"
)

// ContentSource reports which content the current request is viewing.
type ContentSource interface {
	Content(ctx context.Context) (Content, error)
}

// ContentSourceFunc adapts a function to ContentSource.
type ContentSourceFunc func(ctx context.Context) (Content, error)

// Content calls f.
func (f ContentSourceFunc) Content(ctx context.Context) (Content, error) { return f(ctx) }

// IdentitySource reports the visitor's identity. A nil identity or an
// anonymous one means logged out; an error means the state is unknown.
type IdentitySource interface {
	Identity(ctx context.Context) (*auth.Identity, error)
}

// IdentitySourceFunc adapts a function to IdentitySource.
type IdentitySourceFunc func(ctx context.Context) (*auth.Identity, error)

// Identity calls f.
func (f IdentitySourceFunc) Identity(ctx context.Context) (*auth.Identity, error) { return f(ctx) }

// ContextIdentity reads the identity attached by auth.WithIdentity. A failure
// recorded with auth.WithFailure is returned as the error.
var ContextIdentity IdentitySource = IdentitySourceFunc(func(ctx context.Context) (*auth.Identity, error) {
	if err := auth.FailureFromContext(ctx); err != nil {
		return nil, err
	}
	return auth.IdentityFromContext(ctx), nil
})

// DeviceDetector classifies a request by device.
type DeviceDetector func(r *http.Request) Device

// DefaultLocale is used when no other locale signal is available.
const DefaultLocale = "en_us"

// Resolver builds a RequestContext once and memoizes it until Reset.
//
// Contract:
// - Concurrency: safe for concurrent use; all callers between two Resets
// observe the same snapshot.
// - Errors: signal sources that fail fall back to conservative defaults.
type Resolver struct {
	req           *http.Request
	url           string
	content       ContentSource
	identity      IdentitySource
	locale        string
	defaultLocale string
	supported     []language.Tag
	supportedRaw  []string
	device        DeviceDetector
	forcedDevice  Device
	now           func() time.Time
	loc           *time.Location
	logger        observe.Logger

	mu     sync.Mutex
	cached *RequestContext
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRequest sets the HTTP request the context is derived from.
func WithRequest(r *http.Request) Option {
	return func(res *Resolver) { res.req = r }
}

// WithURL sets the current page URL, overriding the request's own URL.
// Relative values resolve against the request origin when one is set.
func WithURL(raw string) Option {
	return func(res *Resolver) { res.url = raw }
}

// WithContentSource sets the content source.
func WithContentSource(s ContentSource) Option {
	return func(res *Resolver) { res.content = s }
}

// WithIdentitySource overrides the identity source.
func WithIdentitySource(s IdentitySource) Option {
	return func(res *Resolver) { res.identity = s }
}

// WithLocale forces the locale, ignoring request signals.
func WithLocale(locale string) Option {
	return func(res *Resolver) { res.locale = locale }
}

// WithDefaultLocale sets the locale used when the request carries none.
func WithDefaultLocale(locale string) Option {
	return func(res *Resolver) {
		if strings.TrimSpace(locale) != "" {
			res.defaultLocale = locale
		}
	}
}

// WithSupportedLocales restricts Accept-Language negotiation to locales.
func WithSupportedLocales(locales ...string) Option {
	return func(res *Resolver) {
		res.supported = res.supported[:0]
		res.supportedRaw = res.supportedRaw[:0]
		for _, l := range locales {
			tag, err := language.Parse(strings.ReplaceAll(l, "_", "-"))
			if err != nil {
				continue
			}
			res.supported = append(res.supported, tag)
			res.supportedRaw = append(res.supportedRaw, l)
		}
	}
}

// WithDeviceDetector overrides device detection.
func WithDeviceDetector(d DeviceDetector) Option {
	return func(res *Resolver) {
		if d != nil {
			res.device = d
		}
	}
}

// WithDevice forces the device class, ignoring request signals.
func WithDevice(d Device) Option {
	return func(res *Resolver) { res.forcedDevice = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(res *Resolver) {
		if now != nil {
			res.now = now
		}
	}
}

// WithLocation sets the site time zone used for weekday and minute-of-day.
func WithLocation(loc *time.Location) Option {
	return func(res *Resolver) {
		if loc != nil {
			res.loc = loc
		}
	}
}

// WithLogger sets the logger for degraded signal sources.
func WithLogger(l observe.Logger) Option {
	return func(res *Resolver) {
		if l != nil {
			res.logger = l
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		identity:      ContextIdentity,
		defaultLocale: DefaultLocale,
		device:        DetectDevice,
		now:           time.Now,
		loc:           time.UTC,
		logger:        observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the request context, computing it on first call.
func (r *Resolver) Resolve(ctx context.Context) RequestContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached == nil {
		rc := r.compute(ctx)
		r.cached = &rc
	}
	return r.cached.Clone()
}

// Reset discards the memoized context.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *Resolver) compute(ctx context.Context) RequestContext {
	rc := RequestContext{
		Terms:  map[string][]int{},
		Device: DeviceDesktop,
		Auth:   AuthUnknown,
	}

	if r.content != nil {
		content, err := r.content.Content(ctx)
		if err != nil {
			r.logger.Warn(ctx, "content source unavailable", observe.F("error", err))
		} else {
			c := content.normalized()
			rc.ContentIDs, rc.ContentTypes, rc.Terms = c.IDs, c.Types, c.Terms
		}
	}

	if r.identity != nil {
		id, err := r.identity.Identity(ctx)
		switch {
		case err != nil:
			r.logger.Warn(ctx, "identity source unavailable", observe.F("error", err))
		case id == nil || id.IsAnonymous():
			rc.Auth = AuthLoggedOut
		default:
			rc.Auth = AuthLoggedIn
			rc.Roles = sortedStrings(id.Roles)
		}
	}

	rc.Language = r.resolveLocale()

	if r.req != nil {
		if d := r.device(r.req); d.Valid() {
			rc.Device = d
		}
		rc.URL = CurrentURL(r.req)
	}
	if r.forcedDevice.Valid() {
		rc.Device = r.forcedDevice
	}
	if r.url != "" {
		rc.URL = NormalizeURL(r.url, rc.URL)
	}

	now := r.now().In(r.loc)
	rc.Timestamp = now.Unix()
	rc.Weekday = WeekdayCode(now.Weekday())
	rc.Minute = now.Hour()*60 + now.Minute()

	return rc
}

func (r *Resolver) resolveLocale() string {
	if r.locale != "" {
		return NormalizeLocale(r.locale)
	}
	if r.req != nil {
		if l := r.requested(r.req.URL.Query().Get("lang")); l != "" {
			return NormalizeLocale(l)
		}
		if l := r.negotiate(r.req.Header.Get("Accept-Language")); l != "" {
			return NormalizeLocale(l)
		}
	}
	return NormalizeLocale(r.defaultLocale)
}

// requested validates an explicit ?lang value. It must parse as a BCP 47
// tag and, with supported locales configured, match one of them.
func (r *Resolver) requested(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		return ""
	}
	if len(r.supported) == 0 {
		return tag.String()
	}
	_, idx, conf := language.NewMatcher(r.supported).Match(tag)
	if conf == language.No {
		return ""
	}
	return r.supportedRaw[idx]
}

// negotiate picks the best Accept-Language entry. With supported locales
// configured the match must be at least of low confidence.
func (r *Resolver) negotiate(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	if len(r.supported) == 0 {
		return tags[0].String()
	}
	_, idx, conf := language.NewMatcher(r.supported).Match(tags...)
	if conf == language.No {
		return ""
	}
	return r.supportedRaw[idx]
}

// NormalizeLocale lower-cases a locale tag and uses '_' as the separator.
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "-", "_")
}

// CurrentURL reconstructs and normalizes the absolute URL of r.
func CurrentURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	if host == "" {
		return NormalizeURL(r.URL.RequestURI(), "")
	}
	return NormalizeURL(scheme+"://"+host+r.URL.RequestURI(), "")
}

var weekdayCodes = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayCode returns the three-letter lower-case code for d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}
