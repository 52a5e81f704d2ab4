package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mediasync/internal/media"
	"mediasync/internal/platform/metrics"
)

// EngineState is the transport state of a stream set.
type EngineState string

const (
	StateUnloaded EngineState = "unloaded"
	StateReady    EngineState = "ready"
	StatePlaying  EngineState = "playing"
	StatePaused   EngineState = "paused"
)

// DefaultPollInterval is how often the engine samples the primary's position.
// The media runtime delivers position changes as coarse throttled
// notifications, so a fixed-interval sample is the simplest correct source of
// smooth position feedback. Deliberate trade-off: simplicity over
// notification latency.
const DefaultPollInterval = 100 * time.Millisecond

// Engine makes a stream set behave as one logical player: it fans transport
// commands out to every member in set order within a single pass, samples the
// primary's clock on a fixed interval, mirrors externally triggered
// play/pause transitions onto the secondaries, and applies the rate
// controller's effective rate uniformly.
//
// The engine exclusively owns the stream set; no other component touches
// individual handles.
type Engine struct {
	log          *slog.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration

	mu       sync.Mutex
	set      *media.StreamSet
	rate     *RateController
	duration float64
	state    EngineState
	position float64 // reported position, updated synchronously on commands

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine builds an engine over the given stream set. Metrics may be nil to
// disable metric recording (e.g. in tests). A non-positive pollInterval falls
// back to DefaultPollInterval.
func NewEngine(set *media.StreamSet, rate *RateController, duration float64, log *slog.Logger, m *metrics.Metrics, pollInterval time.Duration) *Engine {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	state := StateUnloaded
	if set.Ready() {
		state = StateReady
	}
	return &Engine{
		log:          log,
		metrics:      m,
		pollInterval: pollInterval,
		set:          set,
		rate:         rate,
		duration:     duration,
		state:        state,
	}
}

// Run starts the reconciliation loop: position sampling on the poll interval
// plus transport mirroring from the primary's event stream. Stop cancels it.
func (e *Engine) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.loop(ctx)
}

// Stop cancels the reconciliation loop and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	var events <-chan media.TransportEvent
	if e.set != nil && e.set.Primary != nil {
		events = e.set.Primary.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reconcile()
		case ev := <-events:
			e.mirror(ev)
		}
	}
}

// Play starts playback on the primary and then every secondary in set order.
// A secondary whose play request is rejected is logged and skipped; it never
// blocks the primary or the other secondaries. Before the set is ready this
// is a silent no-op.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	if err := e.set.Primary.Play(); err != nil {
		e.log.Warn("primary playback rejected", "error", err)
		return
	}
	for _, h := range e.set.Secondaries {
		if err := h.Play(); err != nil {
			e.log.Warn("secondary playback rejected",
				slog.String("kind", string(h.Kind())),
				slog.String("error", err.Error()))
		}
	}
	e.position = e.set.Primary.Position()
	e.state = StatePlaying
	if e.metrics != nil {
		e.metrics.IncTransportCommands()
	}
}

// Pause pauses every member of the set in order. Silent no-op before ready.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	for _, h := range e.set.All() {
		h.Pause()
	}
	e.position = e.set.Primary.Position()
	e.state = StatePaused
	if e.metrics != nil {
		e.metrics.IncTransportCommands()
	}
}

// Seek moves every member to the same position, clamped to [0, duration].
// The reported position updates synchronously so the UI reflects the intent
// immediately, without waiting for the streams to confirm. With automation
// enabled the rate is recomputed for the new position.
func (e *Engine) Seek(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekLocked(t)
}

// Skip behaves as Seek(current + delta), clamped to [0, duration].
func (e *Engine) Skip(delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	e.seekLocked(e.set.Primary.Position() + delta)
}

func (e *Engine) seekLocked(t float64) {
	if !e.readyLocked() {
		return
	}
	if t < 0 {
		t = 0
	}
	if t > e.duration {
		t = e.duration
	}
	for _, h := range e.set.All() {
		h.Seek(t)
	}
	e.position = t
	if e.rate.Automated() {
		e.applyRateLocked(e.rate.Recompute(t))
	}
	if e.metrics != nil {
		e.metrics.IncTransportCommands()
	}
}

// SlowDown lowers the manual rate one step and applies it uniformly. It
// fails with ErrRateAutomated while automation is enabled.
func (e *Engine) SlowDown() (float64, error) {
	return e.stepRate((*RateController).SlowDown)
}

// SpeedUp raises the manual rate one step and applies it uniformly. It fails
// with ErrRateAutomated while automation is enabled.
func (e *Engine) SpeedUp() (float64, error) {
	return e.stepRate((*RateController).SpeedUp)
}

func (e *Engine) stepRate(step func(*RateController) (float64, error)) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eff, err := step(e.rate)
	if err != nil {
		return eff, err
	}
	e.applyRateLocked(eff)
	return eff, nil
}

// SetAutomated toggles automated speed. Turning it on snapshots the manual
// rate and recomputes for the current position; off restores the snapshot.
// The resulting effective rate is applied uniformly and returned.
func (e *Engine) SetAutomated(on bool) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.readyLocked() {
		e.position = e.set.Primary.Position()
	}
	eff := e.rate.SetAutomated(on, e.position)
	e.applyRateLocked(eff)
	return eff
}

// ReapplyRate pushes the controller's current effective rate to every
// stream. Used after a stream-set rebuild, when the new tracks start at the
// default rate.
func (e *Engine) ReapplyRate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyRateLocked(e.rate.Effective())
}

// RateState returns the manual rate, effective rate, and automation flag.
func (e *Engine) RateState() (manual, effective float64, automated bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate.Manual(), e.rate.Effective(), e.rate.Automated()
}

// SetTrackVolume sets the volume of one audio stem. It reports whether the
// stem exists.
func (e *Engine) SetTrackVolume(kind media.Kind, volume float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return false
	}
	h, ok := e.set.Secondary(kind)
	if !ok {
		return false
	}
	h.SetVolume(volume)
	h.SetMuted(false)
	return true
}

// SetTrackMuted mutes or unmutes one audio stem and applies the volume the
// caller derived for that state (0 on mute, the restored level on unmute).
func (e *Engine) SetTrackMuted(kind media.Kind, muted bool, volume float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return false
	}
	h, ok := e.set.Secondary(kind)
	if !ok {
		return false
	}
	h.SetMuted(muted)
	h.SetVolume(volume)
	return true
}

// Position returns the reported position.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Duration returns the content duration in seconds.
func (e *Engine) Duration() float64 {
	return e.duration
}

// State returns the transport state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// reconcile samples the primary's clock. When the position moved since the
// last report it becomes the new reported position and, with automation
// enabled, the rate is recomputed and re-applied.
func (e *Engine) reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	p := e.set.Primary.Position()
	if p == e.position {
		return
	}
	e.position = p
	if e.rate.Automated() {
		e.applyRateLocked(e.rate.Recompute(p))
	}
}

// mirror applies an externally observed primary transport transition to the
// secondaries. This covers play/pause triggers that bypass the engine's own
// entry points (e.g. system media controls). Mirroring is idempotent, so
// events from the engine's own commands are harmless.
func (e *Engine) mirror(ev media.TransportEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	for _, h := range e.set.Secondaries {
		if ev.Playing {
			if err := h.Play(); err != nil {
				e.log.Warn("mirrored play rejected",
					slog.String("kind", string(h.Kind())),
					slog.String("error", err.Error()))
			}
		} else {
			h.Pause()
		}
	}
	if ev.Playing {
		e.state = StatePlaying
	} else {
		e.state = StatePaused
	}
}

func (e *Engine) applyRateLocked(rate float64) {
	if e.set.Ready() {
		for _, h := range e.set.All() {
			h.SetRate(rate)
		}
	}
	if e.metrics != nil {
		e.metrics.IncRateRecomputes()
	}
}

func (e *Engine) readyLocked() bool {
	return e.state != StateUnloaded && e.set.Ready()
}
