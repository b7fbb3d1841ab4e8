// Package live is the dev-mode edit loop: a debounced filesystem watcher
// over markup sources, a websocket server pushing reload and diagnostic
// messages to connected tooling, and a reloader that runs changed files
// through the parse/resolve pipeline and swaps clean trees into running
// views.
package live

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// MarkupExt is the watched source extension.
const MarkupExt = ".loom"

// debounceWindow coalesces editor save bursts (write + chmod + rename)
// into one reload.
const debounceWindow = 100 * time.Millisecond

// Watcher watches directories for markup changes and reports each settled
// batch of changed files exactly once.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func(files []string)
	started  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher delivering change batches to onChange. Call
// Watch for each root, then Start.
func NewWatcher(onChange func(files []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		onChange: onChange,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Watch adds a directory tree, skipping hidden directories.
func (w *Watcher) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Start runs the watch loop until Close.
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.loop()
	}
}

// Close stops the loop and releases the underlying watcher. Safe on a
// watcher that was never started.
func (w *Watcher) Close() error {
	close(w.quit)
	err := w.fsw.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.quit:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isMarkupChange(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			debounce.Reset(debounceWindow)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[live] watcher error: %v", err)

		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			pending = make(map[string]struct{})
			w.onChange(files)
		}
	}
}

func isMarkupChange(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), MarkupExt) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
