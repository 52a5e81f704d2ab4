package settings

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWriteDelay is how long the writer waits for a burst of changes to
// settle before persisting the final value.
const DefaultWriteDelay = 500 * time.Millisecond

const writeTimeout = 5 * time.Second

// Writer debounces settings writes for one user: rapid changes coalesce into
// a single save of the final resulting state. Flush persists any pending
// value immediately and is guaranteed on Close, so an unmount never loses
// the last change. Write failures are logged; in-memory state stays
// authoritative for the session.
type Writer struct {
	store Store
	user  string
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	pending *Settings
	timer   *time.Timer
}

// NewWriter returns a debounced writer for the given user. A non-positive
// delay falls back to DefaultWriteDelay.
func NewWriter(store Store, user string, delay time.Duration, log *slog.Logger) *Writer {
	if delay <= 0 {
		delay = DefaultWriteDelay
	}
	return &Writer{store: store, user: user, delay: delay, log: log}
}

// Save schedules s to be persisted after the debounce delay, replacing any
// previously scheduled value.
func (w *Writer) Save(s Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = &s
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flushPending)
}

// Flush persists any pending value immediately.
func (w *Writer) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	w.flushPending()
}

// Close flushes and releases the writer. The underlying store is shared and
// stays open.
func (w *Writer) Close() {
	w.Flush()
}

func (w *Writer) flushPending() {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	if pending == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := w.store.Save(ctx, w.user, *pending); err != nil {
		w.log.Warn("settings write failed",
			slog.String("user", w.user),
			slog.String("error", err.Error()))
	}
}
