package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mediasync/internal/media"
	"mediasync/internal/platform/logger"
)

// fakeClock advances only when told to. Guarded because the engine's
// reconciliation loop reads it from another goroutine.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestEngine returns an engine over a video track and three stems, all on
// the same fake clock. The reconciliation loop is not started; tests drive
// reconcile directly for determinism.
func newTestEngine(t *testing.T, duration float64, segments []ComplexitySegment) (*Engine, *media.StreamSet, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	video := media.NewTrackWithClock(media.KindVideo, duration, clock.Now)
	speaker := media.NewTrackWithClock(media.KindSpeaker, duration, clock.Now)
	music := media.NewTrackWithClock(media.KindMusic, duration, clock.Now)
	other := media.NewTrackWithClock(media.KindOther, duration, clock.Now)
	set := media.NewStreamSet(video, speaker, music, other)

	rate := NewRateController(segments, 1.0)
	return NewEngine(set, rate, duration, logger.Discard(), nil, 0), set, clock
}

func assertAllMatchPrimary(t *testing.T, set *media.StreamSet) {
	t.Helper()
	primary := set.Primary
	for _, h := range set.Secondaries {
		if h.Paused() != primary.Paused() {
			t.Errorf("%s paused=%v, primary paused=%v", h.Kind(), h.Paused(), primary.Paused())
		}
		if h.Position() != primary.Position() {
			t.Errorf("%s position=%v, primary position=%v", h.Kind(), h.Position(), primary.Position())
		}
		if h.Rate() != primary.Rate() {
			t.Errorf("%s rate=%v, primary rate=%v", h.Kind(), h.Rate(), primary.Rate())
		}
	}
}

func TestEngine_play_pause_fan_out(t *testing.T) {
	e, set, clock := newTestEngine(t, 120, nil)

	e.Play()
	if got := e.State(); got != StatePlaying {
		t.Fatalf("state = %s, want playing", got)
	}
	assertAllMatchPrimary(t, set)

	clock.Advance(5 * time.Second)
	e.Pause()
	if got := e.State(); got != StatePaused {
		t.Fatalf("state = %s, want paused", got)
	}
	if got := e.Position(); got != 5 {
		t.Errorf("position = %v, want 5", got)
	}
	assertAllMatchPrimary(t, set)
}

func TestEngine_seek_applies_to_all_streams(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	e.Seek(42)
	if got := e.Position(); got != 42 {
		t.Errorf("reported position = %v, want 42", got)
	}
	assertAllMatchPrimary(t, set)
	if got := set.Primary.Position(); got != 42 {
		t.Errorf("primary position = %v, want 42", got)
	}
}

func TestEngine_seek_clamps_to_duration(t *testing.T) {
	e, _, _ := newTestEngine(t, 120, nil)

	e.Seek(500)
	if got := e.Position(); got != 120 {
		t.Errorf("position = %v, want clamp at 120", got)
	}
	e.Seek(-3)
	if got := e.Position(); got != 0 {
		t.Errorf("position = %v, want clamp at 0", got)
	}
}

func TestEngine_seek_idempotent(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	e.Seek(30)
	first := e.Position()
	firstRates := set.Primary.Rate()

	e.Seek(30)
	if got := e.Position(); got != first {
		t.Errorf("second seek changed position: %v != %v", got, first)
	}
	if got := set.Primary.Rate(); got != firstRates {
		t.Errorf("second seek changed rate: %v != %v", got, firstRates)
	}
	assertAllMatchPrimary(t, set)
}

func TestEngine_skip_is_relative_seek(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	e.Seek(30)
	e.Skip(10)
	if got := e.Position(); got != 40 {
		t.Errorf("position after skip(+10) = %v, want 40", got)
	}
	e.Skip(-100)
	if got := e.Position(); got != 0 {
		t.Errorf("position after skip(-100) = %v, want clamp at 0", got)
	}
	assertAllMatchPrimary(t, set)
}

func TestEngine_secondary_rejection_does_not_block_others(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	rejected := set.Secondaries[1].(*media.Track)
	rejected.RejectPlayback(errors.New("autoplay blocked"))

	e.Play()

	if got := e.State(); got != StatePlaying {
		t.Fatalf("state = %s, want playing despite one rejection", got)
	}
	if set.Primary.Paused() {
		t.Error("primary should be playing")
	}
	if set.Secondaries[0].Paused() {
		t.Error("first secondary should be playing")
	}
	if !rejected.Paused() {
		t.Error("rejected secondary should stay paused")
	}
	if set.Secondaries[2].Paused() {
		t.Error("last secondary should be playing; rejection must not stop the fan-out")
	}
}

func TestEngine_commands_before_ready_are_noops(t *testing.T) {
	rate := NewRateController(nil, 1.0)
	e := NewEngine(media.NewStreamSet(nil), rate, 120, logger.Discard(), nil, 0)

	// None of these may panic or change state during the mount window.
	e.Play()
	e.Pause()
	e.Seek(10)
	e.Skip(5)
	e.SetAutomated(true)

	if got := e.State(); got != StateUnloaded {
		t.Errorf("state = %s, want unloaded", got)
	}
	if got := e.Position(); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
}

func TestEngine_reconcile_tracks_primary_position(t *testing.T) {
	e, _, clock := newTestEngine(t, 120, nil)

	e.Play()
	clock.Advance(3 * time.Second)
	e.reconcile()

	if got := e.Position(); got != 3 {
		t.Errorf("reported position = %v, want 3", got)
	}
}

func TestEngine_reconcile_reapplies_automated_rate(t *testing.T) {
	segments := []ComplexitySegment{{Start: 0, End: 10, Score: 0.5}, {Start: 10.5, End: 60, Score: 1.5}}
	e, set, clock := newTestEngine(t, 120, segments)

	e.SetAutomated(true)
	if got := set.Primary.Rate(); got != 0.5 {
		t.Fatalf("rate at 0s = %v, want 0.5", got)
	}

	e.Play()
	clock.Advance(30 * time.Second) // 30s wall at 0.5x = position 15
	e.reconcile()

	if got := set.Primary.Rate(); got != 1.5 {
		t.Errorf("rate at position 15 = %v, want 1.5", got)
	}
	assertAllMatchPrimary(t, set)
}

func TestEngine_seek_recomputes_automated_rate(t *testing.T) {
	// Scenario: duration 120, one segment {0,60,1.2}.
	segments := []ComplexitySegment{{Start: 0, End: 60, Score: 1.2}}
	e, set, _ := newTestEngine(t, 120, segments)

	e.SetAutomated(true)
	e.Seek(30)
	if got := set.Primary.Rate(); got != 1.2 {
		t.Errorf("rate after seek(30) = %v, want 1.2", got)
	}

	e.Seek(90)
	if got := set.Primary.Rate(); got != 1.0 {
		t.Errorf("rate after seek(90) = %v, want fallback 1.0", got)
	}
	assertAllMatchPrimary(t, set)
}

func TestEngine_rate_change_never_alters_position(t *testing.T) {
	e, _, _ := newTestEngine(t, 120, nil)

	e.Seek(50)
	if _, err := e.SpeedUp(); err != nil {
		t.Fatalf("SpeedUp: %v", err)
	}
	if got := e.Position(); got != 50 {
		t.Errorf("position after rate change = %v, want 50", got)
	}
}

func TestEngine_manual_steps_apply_uniformly(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	eff, err := e.SpeedUp()
	if err != nil {
		t.Fatalf("SpeedUp: %v", err)
	}
	if eff != 1.1 {
		t.Errorf("effective = %v, want 1.1", eff)
	}
	for _, h := range set.All() {
		if got := h.Rate(); got != 1.1 {
			t.Errorf("%s rate = %v, want 1.1", h.Kind(), got)
		}
	}
}

func TestEngine_mirror_external_pause(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	e.Play()
	drainEvents(set.Primary)

	// An external trigger (e.g. system media controls) pauses the primary
	// behind the engine's back.
	set.Primary.(*media.Track).Pause()
	ev := <-set.Primary.Events()
	e.mirror(ev)

	if got := e.State(); got != StatePaused {
		t.Errorf("state = %s, want paused after mirrored pause", got)
	}
	for _, h := range set.Secondaries {
		if !h.Paused() {
			t.Errorf("%s should be paused after mirroring", h.Kind())
		}
	}
}

func TestEngine_mirror_external_play(t *testing.T) {
	e, set, _ := newTestEngine(t, 120, nil)

	set.Primary.(*media.Track).Play()
	ev := <-set.Primary.Events()
	e.mirror(ev)

	if got := e.State(); got != StatePlaying {
		t.Errorf("state = %s, want playing after mirrored play", got)
	}
	for _, h := range set.Secondaries {
		if h.Paused() {
			t.Errorf("%s should be playing after mirroring", h.Kind())
		}
	}
}

func TestEngine_run_loop_reconciles(t *testing.T) {
	clock := newFakeClock()
	video := media.NewTrackWithClock(media.KindVideo, 120, clock.Now)
	speaker := media.NewTrackWithClock(media.KindSpeaker, 120, clock.Now)
	set := media.NewStreamSet(video, speaker)
	rate := NewRateController(nil, 1.0)
	e := NewEngine(set, rate, 120, logger.Discard(), nil, 5*time.Millisecond)

	e.Run()
	defer e.Stop()

	e.Play()
	clock.Advance(7 * time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.Position() == 7 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("reconciliation loop never picked up position, got %v", e.Position())
}

func drainEvents(h media.Handle) {
	for {
		select {
		case <-h.Events():
		default:
			return
		}
	}
}
