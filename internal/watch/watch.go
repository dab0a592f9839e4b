// Package watch reloads a snapshot file into the controller whenever it
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"depflow/internal/snapshot"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Loader reads the watched file. snapshot.Load is used by default.
type Loader func(path string) (*snapshot.Document, error)

// Watcher applies a snapshot file to a controller after every change.
type Watcher struct {
	path     string
	ctrl     *snapshot.Controller
	debounce time.Duration
	load     Loader
	logger   *slog.Logger
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Loader   Loader
	Logger   *slog.Logger
}

// New creates a watcher for path. Nothing is watched until Run.
func New(path string, ctrl *snapshot.Controller, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		ctrl:     ctrl,
		debounce: opts.Debounce,
		load:     opts.Loader,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.load == nil {
		w.load = snapshot.Load
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file, so editors that replace the file by renaming keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching snapshot", "path", w.path, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("snapshot file changed", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

// reload applies the file; on failure the previous state stays current.
func (w *Watcher) reload() {
	doc, err := w.load(w.path)
	if err != nil {
		w.logger.Warn("keeping previous snapshot", "path", w.path, "error", err)
		return
	}
	st := w.ctrl.Apply(doc, "watch")
	w.logger.Info("snapshot reloaded", "path", w.path, "version", st.Version)
}
