package player

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"mediasync/internal/media"
	"mediasync/internal/metadata"
	"mediasync/internal/platform/metrics"
	"mediasync/internal/settings"
	"mediasync/internal/survey"
)

// SessionConfig carries everything a session needs at mount.
type SessionConfig struct {
	ID           string
	Content      string
	Metadata     metadata.Video
	Settings     settings.Settings
	Context      SessionContext
	Log          *slog.Logger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
	IdleTimeout  time.Duration

	// Clock overrides the media tracks' clock. Nil means wall time.
	Clock func() time.Time
}

// Session is one viewer's mounted player: the synchronization engine over
// its stream set, the rate controller, the fullscreen activity monitor, and
// the control-surface state (captions, highlight, mixer levels). All control
// actions funnel through it; each one tags an interaction category, records
// telemetry, and schedules a debounced settings write.
type Session struct {
	id      string
	content string
	meta    metadata.Video
	sctx    SessionContext
	log     *slog.Logger
	metrics *metrics.Metrics
	poll    time.Duration
	clock   func() time.Time

	mu           sync.Mutex
	engine       *Engine
	rate         *RateController
	monitor      *Monitor
	captions     settings.CaptionMode
	highlight    bool
	speaker      settings.AudioControl
	music        settings.AudioControl
	other        settings.AudioControl
	lastCategory InteractionCategory
	prompt       *survey.Question
	closed       bool
}

// NewSession mounts a session: it builds the stream set from the metadata,
// applies the stored settings, and starts the engine's reconciliation loop.
func NewSession(cfg SessionConfig) *Session {
	st := cfg.Settings
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Session{
		id:           cfg.ID,
		content:      cfg.Content,
		meta:         cfg.Metadata,
		sctx:         cfg.Context,
		log:          cfg.Log,
		metrics:      cfg.Metrics,
		poll:         cfg.PollInterval,
		clock:        clock,
		captions:     st.CaptionMode,
		highlight:    st.Highlight,
		speaker:      st.SpeakerControl,
		music:        st.MusicControl,
		other:        st.OtherControl,
		lastCategory: CategoryGeneral,
		rate:         NewRateController(segmentsFrom(cfg.Metadata), st.ManualPlaybackRate),
	}

	set := s.buildStreamSet()
	s.engine = NewEngine(set, s.rate, cfg.Metadata.Duration, cfg.Log, cfg.Metrics, cfg.PollInterval)
	s.engine.SetAutomated(st.IsSpeedAutomated)
	s.engine.Run()

	s.monitor = NewMonitor(cfg.IdleTimeout)
	return s
}

// segmentsFrom converts subtitle cues into the complexity segments the rate
// controller scans.
func segmentsFrom(meta metadata.Video) []ComplexitySegment {
	segs := make([]ComplexitySegment, 0, len(meta.Subtitles))
	for _, sub := range meta.Subtitles {
		segs = append(segs, ComplexitySegment{
			Start: sub.StartTime,
			End:   sub.EndTime,
			Score: sub.ComplexityScore,
		})
	}
	return segs
}

// buildStreamSet creates the video track plus the three audio stems, with the
// session's mixer state pre-applied. Caller holds no lock; only used at mount
// and during a highlight switch after the engine stopped.
func (s *Session) buildStreamSet() *media.StreamSet {
	d := s.meta.Duration
	video := media.NewTrackWithClock(media.KindVideo, d, s.clock)
	speaker := media.NewTrackWithClock(media.KindSpeaker, d, s.clock)
	music := media.NewTrackWithClock(media.KindMusic, d, s.clock)
	other := media.NewTrackWithClock(media.KindOther, d, s.clock)

	applyControl(speaker, s.speaker)
	applyControl(music, s.music)
	applyControl(other, s.other)

	return media.NewStreamSet(video, speaker, music, other)
}

func applyControl(t *media.Track, c settings.AudioControl) {
	t.SetVolume(c.Volume)
	t.SetMuted(c.Muted)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Content returns the content identifier the session plays.
func (s *Session) Content() string { return s.content }

// User returns the viewer's identity.
func (s *Session) User() string { return s.sctx.User }

// PlayPause issues play or pause across the stream set.
func (s *Session) PlayPause(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch action {
	case "play":
		s.engine.Play()
		s.recordLocked("Pressed play", CategoryGeneral)
	case "pause":
		s.engine.Pause()
		s.recordLocked("Pressed pause", CategoryGeneral)
	default:
		return ErrBadTransportAction
	}
	return nil
}

// Seek moves the whole stream set to t.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Seek(t)
	s.recordLocked(fmt.Sprintf("Sought to %s", formatTime(s.engine.Position())), CategoryGeneral)
}

// Skip moves the whole stream set by delta seconds.
func (s *Session) Skip(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Skip(delta)
	if delta >= 0 {
		s.recordLocked(fmt.Sprintf("Skipped forward %.0fs", delta), CategoryGeneral)
	} else {
		s.recordLocked(fmt.Sprintf("Skipped back %.0fs", -delta), CategoryGeneral)
	}
}

// SlowDown lowers the manual playback rate one step. It fails with
// ErrRateAutomated while automated speed is on.
func (s *Session) SlowDown() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eff, err := s.engine.SlowDown()
	if err != nil {
		return eff, err
	}
	s.recordLocked(fmt.Sprintf("Set playback speed to %d%%", ratePercent(eff)), CategorySpeed)
	s.saveSettingsLocked()
	return eff, nil
}

// SpeedUp raises the manual playback rate one step. It fails with
// ErrRateAutomated while automated speed is on.
func (s *Session) SpeedUp() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eff, err := s.engine.SpeedUp()
	if err != nil {
		return eff, err
	}
	s.recordLocked(fmt.Sprintf("Set playback speed to %d%%", ratePercent(eff)), CategorySpeed)
	s.saveSettingsLocked()
	return eff, nil
}

// ToggleAutomatedSpeed flips automation and returns the new flag.
func (s *Session) ToggleAutomatedSpeed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, automated := s.engine.RateState()
	s.engine.SetAutomated(!automated)
	if !automated {
		s.recordLocked("Turned ON automated speed", CategorySpeed)
	} else {
		s.recordLocked("Turned OFF automated speed", CategorySpeed)
	}
	s.saveSettingsLocked()
	return !automated
}

// ToggleCaptions switches captions between off and the default track.
func (s *Session) ToggleCaptions() settings.CaptionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captions == settings.CaptionsNone {
		s.captions = settings.CaptionsDefault
		s.recordLocked("Turned ON captions", CategoryCaptions)
	} else {
		s.captions = settings.CaptionsNone
		s.recordLocked("Turned OFF captions", CategoryCaptions)
	}
	s.saveSettingsLocked()
	return s.captions
}

// SimplifyCaptions toggles between the default and simplified caption
// tracks. With captions off it turns the simplified track on directly.
func (s *Session) SimplifyCaptions() settings.CaptionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.captions {
	case settings.CaptionsDefault, settings.CaptionsNone:
		s.captions = settings.CaptionsSimplified
		s.recordLocked("Switched to simplified captions", CategoryCaptions)
	case settings.CaptionsSimplified:
		s.captions = settings.CaptionsDefault
		s.recordLocked("Switched to default captions", CategoryCaptions)
	}
	s.saveSettingsLocked()
	return s.captions
}

// ToggleHighlight switches between the normal and speaker-highlight cuts.
// The stream set is rebuilt against the other variant with the position
// carried over; playback resumes paused.
func (s *Session) ToggleHighlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Stop()
	pos := s.engine.Position()
	s.highlight = !s.highlight

	set := s.buildStreamSet()
	s.engine = NewEngine(set, s.rate, s.meta.Duration, s.log, s.metrics, s.poll)
	s.engine.Run()
	s.engine.Seek(pos)
	s.engine.ReapplyRate()

	if s.highlight {
		s.recordLocked("Turned ON speaker highlight", CategoryHighlight)
	} else {
		s.recordLocked("Turned OFF speaker highlight", CategoryHighlight)
	}
	s.saveSettingsLocked()
	return s.highlight
}

// SetVolume sets one stem's level. Changing the volume always unmutes and
// becomes the level restored by a later unmute.
func (s *Session) SetVolume(kind media.Kind, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, err := s.controlLocked(kind)
	if err != nil {
		return err
	}
	volume = clampUnit(volume)
	ctrl.Volume = volume
	ctrl.Muted = false
	ctrl.PrevVolume = volume
	s.engine.SetTrackVolume(kind, volume)
	s.recordLocked(fmt.Sprintf("Set %s volume to %d%%", kind, int(math.Floor(volume*100))), CategoryVolume)
	s.saveSettingsLocked()
	return nil
}

// ToggleMute mutes a stem (remembering its level) or restores it.
func (s *Session) ToggleMute(kind media.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, err := s.controlLocked(kind)
	if err != nil {
		return err
	}
	if ctrl.Muted {
		ctrl.Muted = false
		ctrl.Volume = ctrl.PrevVolume
		s.recordLocked(fmt.Sprintf("Unmuted %s", kind), CategoryVolume)
	} else {
		ctrl.Muted = true
		ctrl.PrevVolume = ctrl.Volume
		ctrl.Volume = 0
		s.recordLocked(fmt.Sprintf("Muted %s", kind), CategoryVolume)
	}
	s.engine.SetTrackMuted(kind, ctrl.Muted, ctrl.Volume)
	s.saveSettingsLocked()
	return nil
}

// EnterFullscreen starts the fullscreen activity monitor.
func (s *Session) EnterFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.EnterFullscreen()
	s.recordLocked("Entered fullscreen", CategoryGeneral)
}

// FullscreenInput records a qualifying input event (pointer move, key press,
// pointer press, touch) while fullscreen. Not logged as an interaction.
func (s *Session) FullscreenInput() {
	s.monitor.Input()
}

// ExitFullscreen ends fullscreen. On a real fullscreen-to-windowed
// transition it fires the survey trigger once with the most recent
// interaction category and returns the selected prompt.
func (s *Session) ExitFullscreen() *survey.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.monitor.ExitFullscreen() {
		return nil
	}
	s.recordLocked("Exited fullscreen", s.lastCategory)
	if s.sctx.Survey == nil {
		return nil
	}
	q := s.sctx.Survey.Fire(s.sctx.User, string(s.lastCategory))
	s.prompt = &q
	return &q
}

// Activity returns the fullscreen activity state.
func (s *Session) Activity() ActivityState {
	return s.monitor.State()
}

// Snapshot reports the full session state. A pending survey prompt is
// delivered once and cleared.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	manual, effective, automated := s.engine.RateState()
	playbackID := s.meta.MuxPlaybackID
	if s.highlight {
		playbackID = s.meta.MuxHighlightPlaybackID
	}

	snap := Snapshot{
		ID:               s.id,
		Content:          s.content,
		User:             s.sctx.User,
		State:            s.engine.State(),
		Position:         s.engine.Position(),
		Duration:         s.meta.Duration,
		EffectiveRate:    effective,
		ManualRate:       manual,
		IsSpeedAutomated: automated,
		CaptionMode:      s.captions,
		Highlight:        s.highlight,
		PlaybackID:       playbackID,
		ThumbnailURL:     s.meta.ThumbnailURL,
		Activity:         s.monitor.State(),
		Fullscreen:       s.monitor.Fullscreen(),
		Speaker:          s.speaker,
		Music:            s.music,
		Other:            s.other,
		Prompt:           s.prompt,
	}
	s.prompt = nil
	return snap
}

// Close unmounts the session: the engine stops, the monitor is torn down,
// and any pending settings write is flushed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.engine.Stop()
	s.monitor.ExitFullscreen()
	if s.sctx.Settings != nil {
		s.sctx.Settings.Flush()
	}
}

func (s *Session) controlLocked(kind media.Kind) (*settings.AudioControl, error) {
	switch kind {
	case media.KindSpeaker:
		return &s.speaker, nil
	case media.KindMusic:
		return &s.music, nil
	case media.KindOther:
		return &s.other, nil
	default:
		return nil, ErrUnknownTrack
	}
}

func (s *Session) recordLocked(action string, category InteractionCategory) {
	s.lastCategory = category
	if s.metrics != nil {
		s.metrics.IncInteractions()
	}
	if s.sctx.Actions != nil {
		s.sctx.Actions.Record(s.sctx.User, action, string(category))
	}
}

func (s *Session) saveSettingsLocked() {
	if s.sctx.Settings == nil {
		return
	}
	manual, effective, automated := s.engine.RateState()
	s.sctx.Settings.Save(settings.Settings{
		CaptionMode:        s.captions,
		PlaybackRate:       effective,
		ManualPlaybackRate: manual,
		IsSpeedAutomated:   automated,
		Highlight:          s.highlight,
		SpeakerControl:     s.speaker,
		MusicControl:       s.music,
		OtherControl:       s.other,
	})
}

func ratePercent(rate float64) int {
	return int(math.Round(rate * 100))
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatTime(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
