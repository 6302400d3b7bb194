package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"kioskd/internal/infrastructure/logging"
)

// defaultDebounce suppresses the burst of filesystem events a single save
// produces. Events landing within this window of the last accepted reload
// or of the manager's last programmatic save are ignored.
const defaultDebounce = time.Second

// WatcherOptions configures a settings file watcher.
type WatcherOptions struct {
	// Manager performs the reload on accepted events. Required.
	Manager *Manager

	// Logger is the operational logger. Required.
	Logger *logging.Logger

	// Debounce overrides the event suppression window. Zero means 1s.
	Debounce time.Duration
}

// Watcher reloads settings when the settings file changes on disk.
//
// It watches the file's parent directory rather than the file itself, so
// the rename-then-create sequence used by atomic saves and most editors
// stays observable across replacements of the file.
type Watcher struct {
	manager  *Manager
	logger   *logging.Logger
	debounce time.Duration

	fw       *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher creates a Watcher from opts. Watching begins on Start.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		manager:  opts.Manager,
		logger:   opts.Logger.With("component", "settings_watcher"),
		debounce: debounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the settings directory. It returns immediately.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.manager.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}
	w.fw = fw

	w.wg.Add(1)
	go w.run()

	w.logger.Info("settings watcher started", "dir", dir)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit. Safe to call
// more than once.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fw != nil {
			w.fw.Close()
		}
		w.wg.Wait()
		w.logger.Info("settings watcher stopped")
	})
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	target := filepath.Base(w.manager.Path())
	var lastReload time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(lastReload) < w.debounce {
				continue
			}
			// Our own atomic saves echo back as events; only external
			// edits warrant a reload.
			if time.Since(w.manager.lastSaveTime()) < w.debounce {
				continue
			}
			lastReload = time.Now()
			w.manager.Reload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("settings watcher error", "error", err)
		}
	}
}
