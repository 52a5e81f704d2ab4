package player

import (
	"errors"

	"mediasync/internal/settings"
	"mediasync/internal/survey"
)

// InteractionCategory tags every control action with the kind of adjustment
// it made. The most recent category selects the survey prompt shown when
// fullscreen is exited.
type InteractionCategory string

const (
	CategoryGeneral   InteractionCategory = "general"
	CategoryVolume    InteractionCategory = "volume"
	CategorySpeed     InteractionCategory = "speed"
	CategoryCaptions  InteractionCategory = "captions"
	CategoryHighlight InteractionCategory = "highlight"
)

var (
	// ErrUnknownTrack is returned for volume or mute commands naming a
	// stem the stream set does not carry.
	ErrUnknownTrack = errors.New("unknown audio track")

	// ErrBadTransportAction is returned for transport verbs other than
	// play and pause.
	ErrBadTransportAction = errors.New("transport action must be play or pause")
)

// SettingsSaver receives the session's durable state after every meaningful
// change. Implementations debounce; Flush is called on unmount.
type SettingsSaver interface {
	Save(settings.Settings)
	Flush()
}

// ActionRecorder receives best-effort interaction telemetry.
type ActionRecorder interface {
	Record(user, action, category string)
}

// SurveyTrigger selects the rating prompt for a fullscreen exit.
type SurveyTrigger interface {
	Fire(user, category string) survey.Question
}

// SessionContext carries the viewer's identity and the session's external
// collaborators. It is injected at construction; nothing is read from
// ambient state.
type SessionContext struct {
	User     string
	Settings SettingsSaver
	Actions  ActionRecorder
	Survey   SurveyTrigger
}

// Snapshot is the session state reported to the UI layer.
type Snapshot struct {
	ID               string                `json:"id"`
	Content          string                `json:"content"`
	User             string                `json:"user"`
	State            EngineState           `json:"state"`
	Position         float64               `json:"position"`
	Duration         float64               `json:"duration"`
	EffectiveRate    float64               `json:"effectiveRate"`
	ManualRate       float64               `json:"manualRate"`
	IsSpeedAutomated bool                  `json:"isSpeedAutomated"`
	CaptionMode      settings.CaptionMode  `json:"captionMode"`
	Highlight        bool                  `json:"highlight"`
	PlaybackID       string                `json:"playbackId"`
	ThumbnailURL     string                `json:"thumbnailUrl,omitempty"`
	Activity         ActivityState         `json:"activity"`
	Fullscreen       bool                  `json:"fullscreen"`
	Speaker          settings.AudioControl `json:"speakerControl"`
	Music            settings.AudioControl `json:"musicControl"`
	Other            settings.AudioControl `json:"otherControl"`
	Prompt           *survey.Question      `json:"prompt,omitempty"`
}
