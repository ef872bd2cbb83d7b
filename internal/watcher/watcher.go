package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Filter decides whether a workspace-relative path is ignored
type Filter interface {
	Excluded(rel string, isDir bool) bool
}

// Watcher provides recursive file system watching with debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	filter    Filter
	rootDir   string
	logger    zerolog.Logger
}

// NewWatcher creates a recursive file watcher on the given root directory.
// It registers all non-excluded subdirectories for watching.
func NewWatcher(rootDir string, filter Filter, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(debounce),
		filter:    filter,
		rootDir:   rootDir,
		logger:    logger,
	}

	// Walk directory tree and add all non-excluded directories to the watcher
	err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootDir && w.excluded(path, true) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn().Err(watchErr).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
	if err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel that receives debounced file system events.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start listens for file system events until ctx is done or the watcher
// is closed. Call this in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// handleEvent converts a single fsnotify event into a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// If a new directory was created, start watching it
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !w.excluded(path, true) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn().Err(err).Str("path", path).Msg("failed to watch new directory")
				}
			}
			return // Don't emit events for directory creation
		}
	}

	if w.excluded(path, false) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return
	}
	w.debouncer.Add(filepath.ToSlash(rel), op)
}

func (w *Watcher) excluded(path string, isDir bool) bool {
	if w.filter == nil {
		return false
	}
	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return true
	}
	return w.filter.Excluded(filepath.ToSlash(rel), isDir)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
