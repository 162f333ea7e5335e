// Package watch signals when a local rule table file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/rulelens/internal/log"
)

// DefaultDebounce batches the bursts of events editors emit for a single save
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. The parent directory is watched so that
// atomic saves (write temp file, rename over target) are seen too.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	changes  chan struct{}

	closeOnce sync.Once
}

// New creates a watcher for path. A zero debounce uses DefaultDebounce.
func New(path string, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		fs:       fsWatcher,
		path:     absPath,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers one notification per debounced burst of changes.
// Notifications coalesce while one is pending.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run processes file system events until ctx is canceled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) {
	logger := log.WithContext(ctx)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	notify := func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("source changed, debouncing", "file", event.Name, "op", event.Op.String())

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, notify)
			mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		if err := w.fs.Close(); err != nil {
			closeErr = fmt.Errorf("close watcher: %w", err)
		}
	})
	return closeErr
}
