// Package watch notifies when new conversation exports arrive.
//
// The core extractor is pull-based; this package is the concrete
// observer adapter around it. Watcher monitors the inbox directory
// with fsnotify and invokes a callback for every HTML file that is
// created or rewritten, debounced per path so editors that write in
// several syscalls trigger once.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces rapid write bursts for one path.
const debounceWindow = 250 * time.Millisecond

// Handler receives the path of an arrived conversation export.
type Handler func(path string)

// Watcher reports new conversation exports in a directory.
type Watcher struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher for dir. The directory must exist before Run
// is called.
func New(dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:     dir,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled, invoking handler for each
// arrived export. Blocking; callers run it in its own goroutine.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isExport(event.Name) {
				continue
			}
			w.schedule(event.Name, handler)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer for one path.
func (w *Watcher) schedule(path string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.logger.Debug("conversation export arrived", "path", path)
		handler(path)
	})
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// isExport reports whether a path looks like a conversation export.
func isExport(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}
