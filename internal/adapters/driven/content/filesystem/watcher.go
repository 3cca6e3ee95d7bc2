package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/logger"
)

// Watcher converts filesystem notifications under the vault root into
// debounced document change events. Editors write files in bursts
// (truncate, write, rename); debouncing collapses a burst into one event
// per document.
type Watcher struct {
	store    *Store
	debounce time.Duration

	watcher *fsnotify.Watcher
	events  chan domain.ChangeEvent
	flushCh chan struct{}

	mu      sync.Mutex
	pending map[string]domain.ChangeKind
	timer   *time.Timer
}

// NewWatcher creates a watcher over the store's root. debounce <= 0 uses
// the default window.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = domain.DefaultWatchDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		store:    store,
		debounce: debounce,
		watcher:  fsw,
		events:   make(chan domain.ChangeEvent, 64),
		flushCh:  make(chan struct{}, 1),
		pending:  make(map[string]domain.ChangeKind),
	}
	if err := w.watchTree(store.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the debounced change stream. The channel closes when the
// watcher stops.
func (w *Watcher) Events() <-chan domain.ChangeEvent {
	return w.events
}

// Run processes notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-w.flushCh:
			w.flush(ctx)
		}
	}
}

// watchTree registers the directory and every non-hidden subdirectory.
// fsnotify watches are not recursive.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// handle classifies one raw notification and schedules the flush.
func (w *Watcher) handle(event fsnotify.Event) {
	// New directories must be added to the watch set immediately, before
	// files created inside them are missed.
	if event.Op.Has(fsnotify.Create) {
		w.maybeWatchDir(event.Name)
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if _, ok := markdownExtensions[ext]; !ok {
		return
	}

	rel, err := filepath.Rel(w.store.Root(), event.Name)
	if err != nil {
		return
	}
	id := domain.NormalizeID(filepath.ToSlash(rel))

	kind := domain.ChangeModified
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		kind = domain.ChangeRemoved
	}

	w.mu.Lock()
	// A remove followed by a rewrite within the window is a modify.
	if kind == domain.ChangeModified || w.pending[id] != domain.ChangeModified {
		w.pending[id] = kind
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.signalFlush)
	} else {
		w.timer.Reset(w.debounce)
	}
	w.mu.Unlock()
}

// signalFlush wakes Run to drain the window. Never blocks, so an expired
// timer cannot strand its goroutine after Run has returned.
func (w *Watcher) signalFlush() {
	select {
	case w.flushCh <- struct{}{}:
	default:
	}
}

// maybeWatchDir adds a newly created directory to the watch set.
func (w *Watcher) maybeWatchDir(p string) {
	if strings.HasPrefix(filepath.Base(p), ".") {
		return
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		if err := w.watcher.Add(p); err != nil {
			logger.Warn("watch %s: %v", p, err)
		}
	}
}

// flush emits every pending event and clears the window. Sends run on
// the Run goroutine so cancellation always unblocks them.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]domain.ChangeKind)
	w.timer = nil
	w.mu.Unlock()

	for id, kind := range pending {
		logger.Debug("watch: %s %s", kind, id)
		select {
		case w.events <- domain.ChangeEvent{Kind: kind, ID: id}:
		case <-ctx.Done():
			return
		}
	}
}
