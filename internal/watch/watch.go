// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs a read whenever its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/logging"
)

// DefaultDebounce is how long the file must stay quiet before a change
// triggers a read. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

// New returns a watcher for path. A non-positive debounce uses
// DefaultDebounce.
func New(path string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: path, debounce: debounce, logger: logging.OrNop(logger)}
}

// Run calls fn once, then again after every settled change to the file,
// until ctx is done. The parent directory is watched so that editors that
// replace the file by rename are followed. An error from fn is logged and
// does not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w.trigger(ctx, fn)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.logger.Debug("file changed", zap.String("path", abs), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", abs, err)
		case <-timer.C:
			w.trigger(ctx, fn)
		}
	}
}

func (w *Watcher) trigger(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		w.logger.Warn("read after change failed", zap.String("path", w.path), zap.Error(err))
	}
}
