package player

import (
	"sync"
	"time"
)

// ActivityState says whether on-screen controls should be visible while in
// fullscreen presentation.
type ActivityState string

const (
	ActivityActive ActivityState = "active"
	ActivityIdle   ActivityState = "idle"
)

// DefaultIdleTimeout is how long fullscreen input may be absent before the
// controls hide.
const DefaultIdleTimeout = 3 * time.Second

// Monitor is the idle/active state machine gating control visibility in
// fullscreen. At most one countdown is pending at any time; every qualifying
// input cancels and restarts it. Outside fullscreen the state is pinned to
// Active and no countdown runs.
type Monitor struct {
	timeout time.Duration

	mu         sync.Mutex
	fullscreen bool
	state      ActivityState
	timer      *time.Timer
	generation uint64
}

// NewMonitor returns a monitor with the given idle timeout. A non-positive
// timeout falls back to DefaultIdleTimeout.
func NewMonitor(timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &Monitor{timeout: timeout, state: ActivityActive}
}

// State returns the current activity state.
func (m *Monitor) State() ActivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fullscreen reports whether a fullscreen session is running.
func (m *Monitor) Fullscreen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreen
}

// EnterFullscreen starts a fullscreen session: state Active, countdown armed.
// Re-entering while already fullscreen just restarts the countdown.
func (m *Monitor) EnterFullscreen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fullscreen = true
	m.state = ActivityActive
	m.restartLocked()
}

// Input records a qualifying user input (pointer move, key press, pointer
// press, touch). Ignored outside fullscreen.
func (m *Monitor) Input() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fullscreen {
		return
	}
	m.state = ActivityActive
	m.restartLocked()
}

// ExitFullscreen ends the fullscreen session: the countdown is cleared and
// the state forced to Active, since controls never hide outside fullscreen.
// It reports whether a fullscreen session was actually running, so the
// caller fires the survey trigger exactly once per real exit.
func (m *Monitor) ExitFullscreen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.fullscreen
	m.fullscreen = false
	m.state = ActivityActive
	m.stopLocked()
	return was
}

// restartLocked replaces any pending countdown with a fresh one. The
// generation counter lets an already-fired timer recognise it is stale.
func (m *Monitor) restartLocked() {
	m.stopLocked()
	m.generation++
	gen := m.generation
	m.timer = time.AfterFunc(m.timeout, func() { m.expire(gen) })
}

func (m *Monitor) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || !m.fullscreen {
		return
	}
	m.state = ActivityIdle
	m.timer = nil
}
