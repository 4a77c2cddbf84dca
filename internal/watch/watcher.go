// Package watch reruns a map load when the file changes on disk. Editors
// save through temp files and renames, so the parent directory is watched
// and events are filtered by name. Bursts of events for one file are
// collapsed into a single callback after the file has been quiet for the
// debounce interval.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to map files.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	ext      string

	mu      sync.Mutex
	targets map[string]bool // absolute file paths; empty means every file with ext
	timers  map[string]*time.Timer
	running map[string]bool
	pending map[string]bool
}

// NewWatcher creates a watcher for files with the given extension.
func NewWatcher(ext string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fw:       fw,
		debounce: debounce,
		ext:      strings.ToLower(ext),
		targets:  make(map[string]bool),
		timers:   make(map[string]*time.Timer),
		running:  make(map[string]bool),
		pending:  make(map[string]bool),
	}, nil
}

// AddFile watches a single file.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.targets[abs] = true
	w.mu.Unlock()
	return w.fw.Add(filepath.Dir(abs))
}

// AddDir watches every file with the watcher's extension directly inside dir.
func (w *Watcher) AddDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return w.fw.Add(abs)
}

func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.targets) > 0 {
		return w.targets[path]
	}
	return strings.ToLower(filepath.Ext(path)) == w.ext
}

// Watch blocks until ctx is cancelled, calling onChange with the absolute
// path of each changed file. onChange runs on a timer goroutine and never
// concurrently for the same path; a change reported while the callback is
// running triggers one more call once it returns.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !w.relevant(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("path", path).Str("op", event.Op.String()).Msg("File event detected")
			w.schedule(path, onChange)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.fire(path, onChange)
	})
}

// fire runs onChange for path unless a call is already running, in which
// case the running call repeats once it returns.
func (w *Watcher) fire(path string, onChange func(string)) {
	w.mu.Lock()
	delete(w.timers, path)
	if w.running[path] {
		w.pending[path] = true
		w.mu.Unlock()
		return
	}
	w.running[path] = true
	w.mu.Unlock()

	for {
		onChange(path)

		w.mu.Lock()
		if !w.pending[path] {
			delete(w.running, path)
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
