// Package server exposes the sidebar over HTTP.
//
// Routes:
//
//	GET    /sidebar          rendered fragment (204 when nothing to show)
//	GET    /sidebar/explain  profile selection trace as JSON
//	GET    /cache/entries    cached entries and cumulative counters
//	DELETE /cache            clear every entry
//	DELETE /cache/:locale    clear one entry (?profile= selects the suffix)
//	POST   /cache/purge      remove expired entries
//	GET    /healthz /readyz /health /health/:name
//	GET    /metrics
//
// The cache routes are mounted only when administration is enabled.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/health"
	"github.com/jonwraymond/sidenav/internal/config"
	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/render"
)

// Response headers set on /sidebar.
const (
	HeaderProfile   = "X-Sidenav-Profile"
	HeaderCache     = "X-Sidenav-Cache"
	HeaderRequestID = "X-Request-ID"
)

var (
	ErrNilOrchestrator = errors.New("server: orchestrator is nil")
	ErrNilSelector     = errors.New("server: selector is nil")
)

// Server routes HTTP requests to the render pipeline.
type Server struct {
	orch     *render.Orchestrator
	selector *profile.Selector
	store    *cache.Store
	health   *health.Aggregator
	auth     auth.Authenticator
	metrics  http.Handler
	logger   observe.Logger
	site     config.SiteConfig
	loc      *time.Location
	admin    config.AdminConfig
	now      func() time.Time

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables the cache administration routes' backing store.
func WithCache(s *cache.Store) Option { return func(srv *Server) { srv.store = s } }

// WithHealth mounts the probe routes.
func WithHealth(a *health.Aggregator) Option { return func(srv *Server) { srv.health = a } }

// WithAuthenticator identifies viewers on every request.
func WithAuthenticator(a auth.Authenticator) Option { return func(srv *Server) { srv.auth = a } }

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option { return func(srv *Server) { srv.metrics = h } }

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

// WithSite sets locale defaults and the site time zone.
func WithSite(site config.SiteConfig, loc *time.Location) Option {
	return func(srv *Server) {
		srv.site = site
		if loc != nil {
			srv.loc = loc
		}
	}
}

// WithAdmin configures the cache administration routes.
func WithAdmin(a config.AdminConfig) Option { return func(srv *Server) { srv.admin = a } }

// WithClock overrides the request clock.
func WithClock(now func() time.Time) Option {
	return func(srv *Server) {
		if now != nil {
			srv.now = now
		}
	}
}

// New builds the router.
func New(orch *render.Orchestrator, selector *profile.Selector, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, ErrNilOrchestrator
	}
	if selector == nil {
		return nil, ErrNilSelector
	}
	s := &Server{
		orch:     orch,
		selector: selector,
		logger:   observe.NopLogger(),
		site:     config.Default().Site,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger), identify(s.auth, s.logger))

	r.GET("/sidebar", s.sidebar)
	r.GET("/sidebar/explain", s.explain)

	if s.health != nil {
		health.Register(r, s.health)
	}
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	if s.admin.Enabled && s.store != nil {
		g := r.Group("/cache", requireRole(s.admin.Role))
		g.GET("/entries", s.cacheEntries)
		g.DELETE("", s.cacheClear)
		g.DELETE("/:locale", s.cacheClearEntry)
		g.POST("/purge", s.cachePurge)
	}
	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down within
// cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", observe.F("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}
