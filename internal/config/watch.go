package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the config file for edits and emits a debounced reload
// signal. Editors often write a file several times in a burst (truncate,
// write, chmod), so events are coalesced over a short quiet period.
type Watcher struct {
	path     string
	debounce time.Duration
	reloads  chan struct{}
	done     chan struct{}
}

// NewWatcher creates a Watcher for the given config file path.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	return &Watcher{
		path:     path,
		debounce: debounce,
		reloads:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Reloads returns the channel that emits a signal after the config file
// changed and the debounce window passed.
func (w *Watcher) Reloads() <-chan struct{} {
	return w.reloads
}

// Start begins watching. The parent directory is watched rather than the file
// itself so that rename-based saves keep working.
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return err
	}

	go func() {
		defer fsWatcher.Close()

		var timer *time.Timer

		for {
			select {
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case w.reloads <- struct{}{}:
					default: // a reload is already pending
					}
				})

			case _, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}

			case <-w.done:
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()

	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}
