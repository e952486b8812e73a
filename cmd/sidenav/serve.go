package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/internal/config"
	"github.com/jonwraymond/sidenav/internal/server"
	"github.com/jonwraymond/sidenav/observe"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sidebar fragments over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the profiles file on change")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, noWatch bool) error {
	a, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			a.logger.Warn(closeCtx, "shutdown incomplete", observe.F("error", err))
		}
	}()

	authn, err := a.authenticator()
	if err != nil {
		return err
	}
	srv, err := server.New(a.orch, a.selector,
		server.WithCache(a.store),
		server.WithHealth(a.healthAggregator()),
		server.WithAuthenticator(authn),
		server.WithMetricsHandler(a.metricsHandler()),
		server.WithLogger(a.logger),
		server.WithSite(a.cfg.Site, a.loc),
		server.WithAdmin(a.cfg.Server.Admin),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cache.NewPurgeWorker(a.store, a.cfg.Cache.PurgeInterval, a.logger).Start(ctx)
		return nil
	})
	if a.file != nil && a.cfg.Profiles.Watch && !noWatch {
		w := config.NewWatcher(a.file, func(ctx context.Context) {
			start := time.Now()
			n, err := a.store.Clear(ctx)
			if err != nil {
				a.logger.Error(ctx, "cache clear after reload failed", observe.F("error", err))
				return
			}
			a.logger.Info(ctx, "cache cleared after profiles reload",
				observe.F("cleared", n), observe.F("duration_ms", time.Since(start).Milliseconds()))
		}, a.logger)
		g.Go(func() error { return w.Run(ctx) })
	}
	g.Go(func() error { return srv.Run(ctx, a.cfg.Server) })
	return g.Wait()
}
