package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultActionDebounce suppresses identical (user, action) pairs arriving
// within this window, e.g. a held-down skip button.
const DefaultActionDebounce = 500 * time.Millisecond

const insertTimeout = 5 * time.Second

// ActionLogger records control interactions best-effort: inserts happen
// asynchronously and failures are logged, never surfaced to the caller.
type ActionLogger struct {
	store    *Store
	debounce time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewActionLogger returns a logger over the given store. A non-positive
// debounce falls back to DefaultActionDebounce.
func NewActionLogger(store *Store, debounce time.Duration, log *slog.Logger) *ActionLogger {
	if debounce <= 0 {
		debounce = DefaultActionDebounce
	}
	return &ActionLogger{
		store:    store,
		debounce: debounce,
		log:      log,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

// Record logs one interaction. A repeat of the same (user, action) inside
// the debounce window is dropped.
func (l *ActionLogger) Record(user, action, category string) {
	key := user + "\x00" + action
	now := l.now()

	l.mu.Lock()
	if last, ok := l.lastSeen[key]; ok && now.Sub(last) < l.debounce {
		l.mu.Unlock()
		return
	}
	l.lastSeen[key] = now
	l.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()
		if err := l.store.InsertAction(ctx, user, action, category); err != nil {
			l.log.Warn("action log write failed",
				slog.String("user", user),
				slog.String("action", action),
				slog.String("error", err.Error()))
		}
	}()
}
