// Package watcher reacts to filesystem changes beneath the declared
// library roots, debouncing bursts of events into a single rescan
// trigger.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
)

// DefaultDebounce is how long the watcher waits after the last event
// before triggering a rescan. Copying a large file emits many writes;
// only the quiet period afterwards matters.
const DefaultDebounce = 2 * time.Second

// Watcher watches the library roots recursively and invokes onChange
// once per settled burst of filesystem activity.
type Watcher struct {
	libraryDir string
	roots      []string
	debounce   time.Duration
	onChange   func()

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
}

// New creates a Watcher. onChange runs on the watcher's goroutine and
// must not block for long. A debounce of zero or less uses
// DefaultDebounce.
func New(libraryDir string, roots []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	return &Watcher{
		libraryDir: libraryDir,
		roots:      roots,
		debounce:   debounce,
		onChange:   onChange,
		fsw:        fsw,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start registers the watched directories and begins the event loop.
func (w *Watcher) Start() error {
	watched := 0
	for _, root := range w.roots {
		absRoot := filepath.Join(w.libraryDir, root)
		n, err := w.watchTree(absRoot)
		if err != nil {
			// A declared root may not exist yet; watch what is there.
			logging.Warn("Cannot watch %s: %v", absRoot, err)
			continue
		}
		watched += n
	}
	logging.Info("Watching %d directories under %s (debounce %v)", watched, w.libraryDir, w.debounce)

	go w.loop()
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.fsw.Close(); err != nil {
		logging.Warn("Error closing filesystem watcher: %v", err)
	}
}

// watchTree adds dir and all its subdirectories to the watch set and
// returns how many directories were added.
func (w *Watcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Skipping unwatchable path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Warn("Failed to watch %s: %v", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) loop() {
	// The timer starts stopped; the first event arms it.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			metrics.WatcherEventsTotal.Inc()
			logging.Debug("Filesystem event: %s", event)

			// New directories must join the watch set before their
			// contents generate events we would otherwise miss.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := w.watchTree(event.Name); err != nil {
						logging.Warn("Failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !pending {
				pending = true
			} else if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			pending = false
			metrics.WatcherRescansTriggered.Inc()
			logging.Info("Filesystem activity settled, triggering rescan")
			w.onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Filesystem watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}
