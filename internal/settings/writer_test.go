package settings

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediasync/internal/platform/logger"
)

// countingStore wraps MemoryStore and counts writes.
type countingStore struct {
	*MemoryStore
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Save(ctx context.Context, user string, st Settings) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, user, st)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func TestWriter_coalesces_rapid_saves(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewWriter(store, "p01", 30*time.Millisecond, logger.Discard())

	for i := 0; i < 5; i++ {
		st := Default()
		st.ManualPlaybackRate = 1.0 + float64(i)*0.1
		w.Save(st)
	}

	deadline := time.Now().Add(time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.count(); got != 1 {
		t.Fatalf("writes = %d, want the burst coalesced into 1", got)
	}

	st, ok, err := store.Load(context.Background(), "p01")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if st.ManualPlaybackRate != 1.4 {
		t.Errorf("persisted rate = %v, want the final value 1.4", st.ManualPlaybackRate)
	}
}

func TestWriter_flush_persists_pending_immediately(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewWriter(store, "p01", time.Hour, logger.Discard())

	st := Default()
	st.Highlight = true
	w.Save(st)
	w.Flush()

	if got := store.count(); got != 1 {
		t.Fatalf("writes = %d, want 1 after flush", got)
	}
	loaded, ok, _ := store.Load(context.Background(), "p01")
	if !ok || !loaded.Highlight {
		t.Errorf("loaded = %+v ok=%v, want highlight persisted", loaded, ok)
	}
}

func TestWriter_flush_without_pending_is_noop(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewWriter(store, "p01", time.Hour, logger.Discard())

	w.Flush()
	w.Close()
	if got := store.count(); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

func TestWriter_close_persists_pending(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	w := NewWriter(store, "p01", time.Hour, logger.Discard())

	st := Default()
	st.CaptionMode = CaptionsDefault
	w.Save(st)
	w.Close()

	loaded, ok, _ := store.Load(context.Background(), "p01")
	if !ok || loaded.CaptionMode != CaptionsDefault {
		t.Errorf("loaded = %+v ok=%v, want caption mode persisted on close", loaded, ok)
	}
}
