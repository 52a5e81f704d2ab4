package telemetry

import (
	"context"
	"testing"
	"time"

	"mediasync/internal/platform/logger"
)

func waitForCount(t *testing.T, s *Store, user string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := s.CountActions(context.Background(), user)
		if err != nil {
			t.Fatalf("CountActions: %v", err)
		}
		if n == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	n, _ := s.CountActions(context.Background(), user)
	t.Fatalf("actions = %d, want %d", n, want)
}

func TestActionLogger_debounces_repeats(t *testing.T) {
	s := newTestStore(t)
	l := NewActionLogger(s, 500*time.Millisecond, logger.Discard())

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	l.Record("p01", "Skipped forward 10s", "general")
	l.Record("p01", "Skipped forward 10s", "general")
	l.Record("p01", "Skipped forward 10s", "general")
	waitForCount(t, s, "p01", 1)

	// Past the debounce window the same action logs again.
	clock = clock.Add(501 * time.Millisecond)
	l.Record("p01", "Skipped forward 10s", "general")
	waitForCount(t, s, "p01", 2)
}

func TestActionLogger_distinct_actions_not_debounced(t *testing.T) {
	s := newTestStore(t)
	l := NewActionLogger(s, 500*time.Millisecond, logger.Discard())

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	l.Record("p01", "Pressed play", "general")
	l.Record("p01", "Pressed pause", "general")
	waitForCount(t, s, "p01", 2)
}

func TestActionLogger_debounce_is_per_user(t *testing.T) {
	s := newTestStore(t)
	l := NewActionLogger(s, 500*time.Millisecond, logger.Discard())

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	l.Record("p01", "Pressed play", "general")
	l.Record("p02", "Pressed play", "general")
	waitForCount(t, s, "p01", 1)
	waitForCount(t, s, "p02", 1)
}
