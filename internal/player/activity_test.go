package player

import (
	"testing"
	"time"
)

const testIdleTimeout = 40 * time.Millisecond

func waitForState(t *testing.T, m *Monitor, want ActivityState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("monitor never reached %s (state=%s)", want, m.State())
}

func TestMonitor_initially_active(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	if got := m.State(); got != ActivityActive {
		t.Errorf("state = %s, want active", got)
	}
}

func TestMonitor_idles_after_timeout(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.EnterFullscreen()
	waitForState(t, m, ActivityIdle)
}

func TestMonitor_input_returns_to_active_and_restarts_countdown(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.EnterFullscreen()
	waitForState(t, m, ActivityIdle)

	m.Input()
	if got := m.State(); got != ActivityActive {
		t.Fatalf("state after input = %s, want active", got)
	}
	waitForState(t, m, ActivityIdle)
}

func TestMonitor_repeated_input_keeps_active(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.EnterFullscreen()

	// Keep poking well inside the timeout; the countdown must keep
	// restarting rather than expiring.
	for i := 0; i < 8; i++ {
		time.Sleep(testIdleTimeout / 4)
		m.Input()
		if got := m.State(); got != ActivityActive {
			t.Fatalf("state = %s after input %d, want active", got, i)
		}
	}
}

func TestMonitor_exit_forces_active_and_clears_countdown(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.EnterFullscreen()
	waitForState(t, m, ActivityIdle)

	if !m.ExitFullscreen() {
		t.Fatal("ExitFullscreen should report a real transition")
	}
	if got := m.State(); got != ActivityActive {
		t.Errorf("state after exit = %s, want active", got)
	}

	// No countdown may survive the exit: outside fullscreen the controls
	// never hide.
	time.Sleep(2 * testIdleTimeout)
	if got := m.State(); got != ActivityActive {
		t.Errorf("state stayed %s outside fullscreen, want active", got)
	}
}

func TestMonitor_exit_without_fullscreen_reports_no_transition(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	if m.ExitFullscreen() {
		t.Error("exit without a fullscreen session must not report a transition")
	}
}

func TestMonitor_input_outside_fullscreen_ignored(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.Input()
	time.Sleep(2 * testIdleTimeout)
	if got := m.State(); got != ActivityActive {
		t.Errorf("state = %s, want active (no countdown outside fullscreen)", got)
	}
}

func TestMonitor_stale_timer_cannot_idle_after_reenter(t *testing.T) {
	m := NewMonitor(testIdleTimeout)
	m.EnterFullscreen()
	m.ExitFullscreen()
	m.EnterFullscreen()

	// Only the countdown from the second enter may expire; the state must
	// stay active until a full timeout elapses after re-entering.
	time.Sleep(testIdleTimeout / 2)
	if got := m.State(); got != ActivityActive {
		t.Errorf("state = %s half-way through countdown, want active", got)
	}
	waitForState(t, m, ActivityIdle)
}
