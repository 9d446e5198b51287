package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"variant-server/internal/logging"
	"variant-server/internal/mediatypes"
	"variant-server/internal/metrics"
	"variant-server/internal/variant"
)

// Cleaner sweeps everything derived from a deleted source.
type Cleaner interface {
	RemoveDerivatives(sourcePath string) (int, error)
}

// Watcher monitors the media tree and triggers derivative cleanup when a
// source image disappears, so stale derivatives never outlive their source.
type Watcher struct {
	mediaDir string
	cleaner  Cleaner
	stopChan chan struct{}
}

// New creates a watcher over mediaDir that reports deletions to cleaner.
func New(mediaDir string, cleaner Cleaner) *Watcher {
	return &Watcher{
		mediaDir: mediaDir,
		cleaner:  cleaner,
		stopChan: make(chan struct{}),
	}
}

// Watch monitors the media directory for changes using fsnotify. It blocks
// until Stop is called; run it in its own goroutine.
func (w *Watcher) Watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create file watcher: %v", err)
		metrics.WatcherErrors.Inc()
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := w.addDirectoriesToWatcher(watcher)
	logging.Debug("Cleanup watcher started, watching %d directories", watchCount)

	metrics.WatchedDirectories.Set(float64(watchCount))

	w.processEvents(watcher)
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	close(w.stopChan)
}

// addDirectoriesToWatcher adds all directories in mediaDir to the watcher
func (w *Watcher) addDirectoriesToWatcher(watcher *fsnotify.Watcher) int {
	watchCount := 0
	err := filepath.Walk(w.mediaDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			if addErr := watcher.Add(path); addErr != nil {
				logging.Warn("failed to add path to watcher %s: %v", path, addErr)
				metrics.WatcherErrors.Inc()
			} else {
				watchCount++
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

// processEvents handles file system events from the watcher
func (w *Watcher) processEvents(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-w.stopChan:
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	// Skip hidden files
	if strings.Contains(event.Name, "/.") {
		return
	}

	eventType := getEventType(event.Op)
	metrics.WatcherEventsTotal.WithLabelValues(eventType).Inc()

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreateEvent(watcher, event)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemoveEvent(event)
	}
}

// getEventType returns a string representation of the fsnotify operation
func getEventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

// handleCreateEvent handles file/directory creation events
func (w *Watcher) handleCreateEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if addErr := watcher.Add(event.Name); addErr != nil {
			logging.Warn("failed to add new directory to watcher %s: %v", event.Name, addErr)
			metrics.WatcherErrors.Inc()
		} else {
			logging.Debug("Added new directory to watcher: %s", event.Name)
			metrics.WatchedDirectories.Inc()
		}
	}
}

// handleRemoveEvent sweeps derivatives when a source image disappears.
func (w *Watcher) handleRemoveEvent(event fsnotify.Event) {
	if !sweepTarget(event.Name) {
		return
	}

	removed, err := w.cleaner.RemoveDerivatives(event.Name)
	if err != nil {
		logging.Warn("derivative sweep failed for %s: %v", event.Name, err)
		metrics.WatcherErrors.Inc()
		return
	}
	if removed > 0 {
		metrics.WatcherSweepsTotal.Inc()
		logging.Info("swept %d derivatives after deletion of %s", removed, event.Name)
	}
}

// sweepTarget reports whether a deleted path was a source image. Vanishing
// derivatives and queue descriptors are routine churn, not sweep triggers,
// and their names match the variation pattern.
func sweepTarget(path string) bool {
	name := filepath.Base(path)
	if _, isVariation := variant.ParseVariationBase(name); isVariation {
		return false
	}
	return mediatypes.IsSource(name)
}
