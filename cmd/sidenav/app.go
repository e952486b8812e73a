package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/health"
	"github.com/jonwraymond/sidenav/internal/config"
	"github.com/jonwraymond/sidenav/kvstore"
	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/render"
	"github.com/jonwraymond/sidenav/resilience"
)

// memoryLimit is the heap size the memory probe measures against.
const memoryLimit = 512 << 20

// app holds the components wired from one configuration.
type app struct {
	cfg    config.Config
	logger observe.Logger
	zap    *zap.Logger
	loc    *time.Location

	kv       kvstore.KV
	closers  []func() error
	file     *config.FileRepository
	selector *profile.Selector
	store    *cache.Store
	exec     *resilience.Executor
	orch     *render.Orchestrator
	obs      observe.Observer
	registry *prometheus.Registry
}

func loadApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(ctx, opts.cfgPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Observe.Logging.Level = opts.logLevel
	}
	return newApp(ctx, cfg)
}

// newApp builds every component. On error, whatever was opened is closed.
func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	z, err := observe.NewZapProduction(cfg.Observe.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, zap: z, logger: observe.NewZapLogger(z)}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.loc, err = cfg.Site.Location(); err != nil {
		return nil, fmt.Errorf("site.time_zone: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if a.obs, err = observe.NewObserver(ctx, cfg.Observe,
		observe.WithPrometheusRegisterer(a.registry),
		observe.WithLogger(a.logger),
	); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	metrics, err := observe.NewMetrics(a.obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if a.store, err = cache.NewStore(a.kv,
		cache.WithPolicy(cfg.Cache.Policy),
		cache.WithNamespace(cfg.Cache.Namespace),
		cache.WithLogger(a.logger),
		cache.WithSink(cache.MultiSink(cache.LogSink(a.logger), cache.MetricsSink(metrics))),
	); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	var repo profile.Repository = profile.NewKVRepository(a.kv, "")
	tmplOpts := []render.TemplateOption{render.WithRendererLogger(a.logger)}
	if cfg.Profiles.File != "" {
		if a.file, err = config.OpenProfiles(cfg.Profiles.File); err != nil {
			return nil, err
		}
		repo = a.file
		tmplOpts = append(tmplOpts, render.WithLinkResolver(a.file))
	}
	if a.selector, err = profile.NewSelector(repo, profile.WithLogger(a.logger)); err != nil {
		return nil, err
	}

	a.exec = resilience.NewExecutorFromConfig(cfg.Render, a.logger)
	mw, err := observe.MiddlewareFromObserver(a.obs)
	if err != nil {
		return nil, err
	}
	if a.orch, err = render.NewOrchestrator(a.selector, render.NewTemplateRenderer(tmplOpts...),
		render.WithCache(a.store),
		render.WithExecutor(a.exec),
		render.WithMiddleware(mw),
		render.WithLogger(a.logger),
	); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case "sqlite":
		db, err := kvstore.OpenSQLite(ctx, a.cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		a.kv = db
		a.closers = append(a.closers, db.Close)
	default:
		a.kv = kvstore.NewMemory()
	}
	return nil
}

func (a *app) authenticator() (auth.Authenticator, error) {
	return auth.NewFromConfig(a.cfg.Auth, a.logger)
}

func (a *app) healthAggregator() *health.Aggregator {
	agg := health.NewAggregator(0)
	agg.Register(health.NewStoreChecker("store", a.kv))
	agg.Register(health.NewCacheChecker(a.store))
	if cb := a.exec.Breaker(); cb != nil {
		agg.Register(health.NewBreakerChecker(cb))
	}
	agg.Register(health.NewMemoryChecker(memoryLimit))
	return agg
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Close releases the store and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	return errors.Join(errs...)
}
