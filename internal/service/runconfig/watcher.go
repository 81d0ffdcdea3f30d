package runconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hugo-lorenzo-mato/autorun/internal/control"
	"github.com/hugo-lorenzo-mato/autorun/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Pusher accepts command lines. *control.CommandBus satisfies it.
type Pusher interface {
	Push(source, line string)
}

// Watcher pushes a reload command whenever the strategy file changes. It
// never touches the builder directly; the control loop applies the reload.
type Watcher struct {
	path     string
	bus      Pusher
	debounce time.Duration
	logger   *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the strategy file at path.
func NewWatcher(path string, bus Pusher, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		bus:      bus,
		debounce: DefaultDebounce,
		logger:   logger.WithComponent("strategy-watcher"),
	}
}

// WithDebounce overrides the debounce window.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that atomic replace-by-rename saves are observed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Debug("strategy-watcher: watching", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("strategy-watcher: watch error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("strategy-watcher: strategy file changed", "path", w.path)
		w.bus.Push(control.SourceWatcher, "reload")
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
