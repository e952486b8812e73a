package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/sidenav/observe"
)

// DefaultDebounce collapses bursts of writes into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Reloadable is a file-backed source that can re-read itself.
type Reloadable interface {
	Path() string
	Reload() error
}

// Watcher reloads a file-backed source when it changes on disk and then
// calls OnChange. Only successful reloads trigger OnChange.
type Watcher struct {
	source   Reloadable
	onChange func(ctx context.Context)
	logger   observe.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for source.
func NewWatcher(source Reloadable, onChange func(ctx context.Context), logger observe.Logger) *Watcher {
	if logger == nil {
		logger = observe.NopLogger()
	}
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &Watcher{source: source, onChange: onChange, logger: logger, debounce: DefaultDebounce}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// editors that replace the file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer fw.Close()

	path, err := filepath.Abs(w.source.Path())
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", w.source.Path(), err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.logger.Info(ctx, "watching profiles file", observe.F("path", path))

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			w.reload(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, "profiles watcher error", observe.F("error", err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.source.Reload(); err != nil {
		w.logger.Error(ctx, "profiles reload failed; keeping previous document",
			observe.F("path", w.source.Path()), observe.F("error", err))
		return
	}
	w.logger.Info(ctx, "profiles reloaded", observe.F("path", w.source.Path()))
	w.onChange(ctx)
}
