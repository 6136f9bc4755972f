// Package watch monitors a drop directory for new photos and triggers
// analysis once a batch of files has settled.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/novasvilla/facelift/internal/logging"
)

// imageExts are the photo types picked up from the drop directory.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Handler receives a settled batch of new photo paths.
type Handler func(paths []string)

// PhotoWatcher watches a directory and batches newly dropped photos.
// Rapid writes to the same batch are debounced so a multi-photo upload
// triggers one analysis, not one per file.
type PhotoWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	handler     Handler
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewPhotoWatcher creates a watcher over dir. The handler runs on the
// watcher goroutine; long work should be done synchronously anyway so
// batches stay ordered.
func NewPhotoWatcher(dir string, handler Handler) (*PhotoWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &PhotoWatcher{
		watcher:     w,
		dir:         dir,
		handler:     handler,
		pending:     make(map[string]time.Time),
		debounceDur: 2 * time.Second,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; Stop or context cancellation ends it.
func (w *PhotoWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	logging.Session("watching %s for new photos", w.dir)

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the event loop to drain.
func (w *PhotoWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.SessionError("closing photo watcher: %v", err)
	}
}

func (w *PhotoWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.SessionError("photo watcher: %v", err)
		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *PhotoWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !imageExts[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled hands over every pending photo that has been quiet for the
// debounce window, as one batch in stable order.
func (w *PhotoWatcher) flushSettled() {
	now := time.Now()

	w.mu.Lock()
	var batch []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounceDur {
			batch = append(batch, path)
		}
	}
	if len(batch) < len(w.pending) && len(batch) > 0 {
		// Part of the batch is still being written; wait for all of it.
		w.mu.Unlock()
		return
	}
	for _, path := range batch {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	sort.Strings(batch)
	logging.Session("photo batch settled: %d file(s)", len(batch))
	w.handler(batch)
}
