package settings

// CaptionMode selects which caption track is showing.
type CaptionMode string

const (
	CaptionsNone       CaptionMode = "none"
	CaptionsDefault    CaptionMode = "default"
	CaptionsSimplified CaptionMode = "simplified"
)

// AudioControl is the persisted mixer state for one audio stem. PrevVolume
// remembers the level to restore on unmute.
type AudioControl struct {
	Volume     float64 `json:"volume"`
	Muted      bool    `json:"muted"`
	PrevVolume float64 `json:"prevVolume"`
}

// Settings is the durable per-user player state, read at mount and written on
// every meaningful change. The field names match the stored JSON shape.
type Settings struct {
	CaptionMode        CaptionMode  `json:"captionMode"`
	PlaybackRate       float64      `json:"playbackRate"`
	ManualPlaybackRate float64      `json:"manualPlaybackRate"`
	IsSpeedAutomated   bool         `json:"isSpeedAutomated"`
	Highlight          bool         `json:"highlight"`
	SpeakerControl     AudioControl `json:"speakerControl"`
	MusicControl       AudioControl `json:"musicControl"`
	OtherControl       AudioControl `json:"otherControl"`
}

// Default returns the settings applied for a user with nothing stored.
func Default() Settings {
	full := AudioControl{Volume: 1, PrevVolume: 1}
	return Settings{
		CaptionMode:        CaptionsNone,
		PlaybackRate:       1.0,
		ManualPlaybackRate: 1.0,
		SpeakerControl:     full,
		MusicControl:       full,
		OtherControl:       full,
	}
}
