// Package watch re-runs a callback when CUE spec files change.
// It watches a specs directory recursively and coalesces bursts of events
// (editors often write a file several times per save) into one callback.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Directories never watched.
var ignoreDirs = map[string]bool{
	".git":     true,
	".idea":    true,
	".vscode":  true,
	"cue.mod":  true,
	"testdata": true,
}

// Watcher watches spec directories for .cue changes.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a watcher that waits debounce after the last event before
// firing.
func New(debounce time.Duration, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		debounce: debounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches dir and every non-ignored directory below it.
func (w *Watcher) Add(dir string) error {
	return w.addTree(dir, nil)
}

// addTree watches dir recursively and passes every .cue file already in
// the tree to found, when found is non-nil.
func (w *Watcher) addTree(dir string, found func(path string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == absPath {
				return err
			}
			return nil // skip inaccessible paths
		}
		if !d.IsDir() {
			if found != nil && strings.HasSuffix(path, ".cue") {
				found(path)
			}
			return nil
		}
		if path != absPath && ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// Run delivers debounced changes to onChange until ctx is done, then
// closes the watcher. onChange receives the sorted set of .cue paths that
// changed since the previous call and runs on Run's goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	defer w.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !ignoreDirs[info.Name()] {
					// Files written before the watch was added send no events.
					err := w.addTree(event.Name, func(path string) {
						pending[path] = struct{}{}
					})
					if err != nil {
						w.logger.Warn("watch directory", zap.String("path", event.Name), zap.Error(err))
					}
					if len(pending) > 0 {
						timer.Reset(w.debounce)
					}
					continue
				}
			}
			if !relevant(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			w.logger.Debug("specs changed", zap.Strings("paths", changed))
			onChange(changed)
		}
	}
}

// Close releases the underlying watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fw.Close()
	})
	return w.closeErr
}

func relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".cue") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
