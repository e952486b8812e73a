package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/sidenav/observe"
)

// DefaultPurgeInterval is the purge period when none is configured.
const DefaultPurgeInterval = time.Hour

// PurgeWorker periodically removes expired entries from a Store.
type PurgeWorker struct {
	store    *Store
	interval time.Duration
	logger   observe.Logger
}

// NewPurgeWorker creates a worker. A non-positive interval uses
// DefaultPurgeInterval.
func NewPurgeWorker(store *Store, interval time.Duration, logger observe.Logger) *PurgeWorker {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &PurgeWorker{store: store, interval: interval, logger: logger}
}

// Start runs the purge loop until ctx is cancelled.
func (w *PurgeWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "cache purge worker started", observe.F("interval", w.interval.String()))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "cache purge worker stopping")
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass.
func (w *PurgeWorker) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := w.store.PurgeExpiredEntries(ctx)
	if err != nil {
		w.logger.Error(ctx, "cache purge failed", observe.F("error", err), observe.F("purged", n))
		return n, err
	}
	if n > 0 {
		w.logger.Info(ctx, "cache purge finished",
			observe.F("purged", n),
			observe.F("duration_ms", time.Since(start).Milliseconds()))
	}
	return n, nil
}
