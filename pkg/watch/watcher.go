// Package watch re-delivers scenario files whenever their definition
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/withgalaxy/stash/pkg/scenario"
)

type Change struct {
	Path     string
	Scenario *scenario.Scenario
	Err      error
}

type Watcher struct {
	fs       *fsnotify.Watcher
	tracker  *Tracker
	debounce time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

func New(debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fs:       fw,
		tracker:  NewTracker(),
		debounce: debounce,
		log:      log,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Add watches scenario files. Parent directories are watched so editors
// that save by renaming are still seen.
func (w *Watcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}

		dir := filepath.Dir(abs)
		if !w.dirs[dir] {
			if err := w.fs.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			w.dirs[dir] = true
		}

		w.files[abs] = true
		if _, _, err := w.tracker.DetectChange(abs); err != nil {
			w.log.Warn("initial scenario load failed", zap.String("path", abs), zap.Error(err))
		}
	}
	return nil
}

func (w *Watcher) watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

// Run delivers changes until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, changes chan<- Change) error {
	fire := make(chan string)
	done := make(chan struct{})
	timers := make(map[string]*time.Timer)
	defer func() {
		close(done)
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if !w.watching(path) {
				continue
			}
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				case <-done:
				}
			})

		case path := <-fire:
			delete(timers, path)
			sc, changed, err := w.tracker.DetectChange(path)
			if err != nil {
				w.log.Warn("scenario reload failed", zap.String("path", path), zap.Error(err))
				if !w.send(ctx, changes, Change{Path: path, Err: err}) {
					return ctx.Err()
				}
				continue
			}
			if !changed {
				w.log.Debug("scenario saved without changes", zap.String("path", path))
				continue
			}
			w.log.Info("scenario changed", zap.String("path", path))
			if !w.send(ctx, changes, Change{Path: path, Scenario: sc}) {
				return ctx.Err()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

func (w *Watcher) send(ctx context.Context, changes chan<- Change, c Change) bool {
	select {
	case changes <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}
