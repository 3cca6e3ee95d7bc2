package filesystem

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	w := &Watcher{
		store:    store,
		debounce: 10 * time.Millisecond,
		events:   make(chan domain.ChangeEvent, 4),
		flushCh:  make(chan struct{}, 1),
		pending:  make(map[string]domain.ChangeKind),
	}
	return w, dir
}

func TestWatcher_DebounceCoalescesRemoveThenRewrite(t *testing.T) {
	w, dir := newTestWatcher(t)
	path := filepath.Join(dir, "note.md")

	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})

	select {
	case <-w.flushCh:
	case <-time.After(time.Second):
		t.Fatal("debounce timer never fired")
	}
	w.flush(context.Background())

	ev := <-w.events
	assert.Equal(t, domain.ChangeModified, ev.Kind)
	assert.Equal(t, "note.md", ev.ID)
	assert.Zero(t, len(w.events), "burst must collapse into one event")
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	w, dir := newTestWatcher(t)

	w.handle(fsnotify.Event{Name: filepath.Join(dir, "image.png"), Op: fsnotify.Write})

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.pending)
	assert.Nil(t, w.timer)
}

func TestWatcher_FlushReturnsWhenCancelled(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.events = make(chan domain.ChangeEvent) // no consumer
	w.pending["a.md"] = domain.ChangeModified

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.flush(ctx)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush blocked on a stopped consumer")
	}
}
