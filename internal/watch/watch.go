// Package watch re-runs validation when the reference profiles change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// trigger fires.
const DefaultDebounce = 500 * time.Millisecond

// Filter reports whether a changed file name is relevant.
type Filter func(name string) bool

// ReferenceFiles matches the pinned slot and variant files, ignoring
// temp files and everything else written into the directory.
func ReferenceFiles(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "rap") && strings.HasSuffix(base, ".json")
}

// Watcher watches a directory and calls a trigger after changes settle.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	filter   Filter
	debounce time.Duration
	trigger  func()
	logger   *slog.Logger
}

// Options configures a Watcher. Zero values select defaults.
type Options struct {
	Filter   Filter
	Debounce time.Duration
	Logger   *slog.Logger
}

// New creates a watcher on dir. trigger runs once per settled burst of
// relevant changes, never concurrently with itself.
func New(dir string, trigger func(), opts Options) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w := &Watcher{
		watcher:  watcher,
		dir:      dir,
		filter:   opts.Filter,
		debounce: opts.Debounce,
		trigger:  trigger,
		logger:   opts.Logger,
	}
	if w.filter == nil {
		w.filter = ReferenceFiles
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Run watches for changes. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		debounce *time.Timer
		running  sync.Mutex
	)
	fire := func() {
		running.Lock()
		defer running.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.trigger()
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			// Wait for an in-flight trigger.
			running.Lock()
			defer running.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.filter(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("reference changed", "file", event.Name, "op", event.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(w.debounce, fire)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }
