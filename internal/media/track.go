package media

import (
	"sync"
	"time"
)

// Kind identifies which stream a handle plays.
type Kind string

const (
	KindVideo   Kind = "video"
	KindSpeaker Kind = "speaker"
	KindMusic   Kind = "music"
	KindOther   Kind = "other"
)

// TransportEvent is emitted by a track whenever its paused/playing state
// changes, regardless of who issued the command. The synchronization engine
// subscribes to the primary's events to mirror externally triggered
// transitions onto the secondaries.
type TransportEvent struct {
	Playing bool
}

// Handle is one playable stream. All mutation goes through the
// synchronization engine; nothing else should hold a Handle.
type Handle interface {
	Kind() Kind
	Duration() float64
	Position() float64
	Paused() bool
	Rate() float64
	Volume() float64
	Muted() bool

	// Play starts playback. It returns an error when the runtime rejects
	// the request (e.g. an autoplay policy); the track stays paused.
	Play() error
	Pause()
	Seek(t float64)
	SetRate(r float64)
	SetVolume(v float64)
	SetMuted(m bool)

	// Events delivers transport-state changes. The channel is buffered and
	// events are dropped rather than blocking the track.
	Events() <-chan TransportEvent
}

const eventBuffer = 16

// Track models a media element whose position advances at rate x wall-clock
// while playing, clamped to [0, duration]. It is the in-process stand-in for
// the media runtime: same observable surface (position, paused, rate, volume,
// muted), same asynchronous transport events, same autoplay-style rejection.
type Track struct {
	kind     Kind
	duration float64
	now      func() time.Time

	mu           sync.Mutex
	position     float64 // position at the last transition
	playingSince time.Time
	paused       bool
	rate         float64
	volume       float64
	muted        bool
	playErr      error
	events       chan TransportEvent
}

// NewTrack returns a paused track at position 0 with rate 1 and full volume.
func NewTrack(kind Kind, duration float64) *Track {
	return NewTrackWithClock(kind, duration, time.Now)
}

// NewTrackWithClock is NewTrack with an injectable clock. Useful for tests
// that need deterministic position advancement.
func NewTrackWithClock(kind Kind, duration float64, now func() time.Time) *Track {
	return &Track{
		kind:     kind,
		duration: duration,
		now:      now,
		paused:   true,
		rate:     1.0,
		volume:   1.0,
		events:   make(chan TransportEvent, eventBuffer),
	}
}

// Kind implements Handle.Kind.
func (t *Track) Kind() Kind { return t.kind }

// Duration implements Handle.Duration.
func (t *Track) Duration() float64 { return t.duration }

// Position implements Handle.Position.
func (t *Track) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

// Paused implements Handle.Paused.
func (t *Track) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Rate implements Handle.Rate.
func (t *Track) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// Volume implements Handle.Volume.
func (t *Track) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Muted implements Handle.Muted.
func (t *Track) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// Play implements Handle.Play. Playing an already-playing track is a no-op
// and emits no event, matching media element behavior.
func (t *Track) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playErr != nil {
		return t.playErr
	}
	if !t.paused {
		return nil
	}
	t.paused = false
	t.playingSince = t.now()
	t.emitLocked(TransportEvent{Playing: true})
	return nil
}

// Pause implements Handle.Pause. Pausing a paused track is a no-op.
func (t *Track) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return
	}
	t.position = t.positionLocked()
	t.paused = true
	t.emitLocked(TransportEvent{Playing: false})
}

// Seek implements Handle.Seek, clamping to [0, duration].
func (t *Track) Seek(pos float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = clamp(pos, 0, t.duration)
	t.playingSince = t.now()
}

// SetRate implements Handle.SetRate. The position is rebased so a rate change
// never moves the playhead.
func (t *Track) SetRate(r float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = t.positionLocked()
	t.playingSince = t.now()
	t.rate = r
}

// SetVolume implements Handle.SetVolume, clamping to [0, 1].
func (t *Track) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp(v, 0, 1)
}

// SetMuted implements Handle.SetMuted.
func (t *Track) SetMuted(m bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = m
}

// Events implements Handle.Events.
func (t *Track) Events() <-chan TransportEvent {
	return t.events
}

// RejectPlayback makes subsequent Play calls fail with err, modeling an
// autoplay-policy rejection. Pass nil to clear.
func (t *Track) RejectPlayback(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playErr = err
}

func (t *Track) positionLocked() float64 {
	if t.paused {
		return t.position
	}
	pos := t.position + t.rate*t.now().Sub(t.playingSince).Seconds()
	return clamp(pos, 0, t.duration)
}

func (t *Track) emitLocked(ev TransportEvent) {
	select {
	case t.events <- ev:
	default:
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
