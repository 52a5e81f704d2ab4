package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable marks a metadata fetch failure. Duration and complexity
// data are required, so this blocks playback for the content; no automatic
// retry is performed.
var ErrUnavailable = errors.New("video metadata unavailable")

// Subtitle is one caption cue with its content-authored complexity scores.
// The time range plus complexity_score doubles as a complexity segment for
// automated playback speed.
type Subtitle struct {
	StartTime         float64 `json:"start_time"`
	EndTime           float64 `json:"end_time"`
	Text              string  `json:"text"`
	FleschReadingEase float64 `json:"flesch_reading_ease"`
	WordsPerMinute    float64 `json:"words_per_minute"`
	ComplexityScore   float64 `json:"complexity_score"`
}

// Video is the per-content metadata document served alongside the media.
type Video struct {
	Duration               float64    `json:"duration"`
	Subtitles              []Subtitle `json:"subtitles,omitempty"`
	ThumbnailURL           string     `json:"thumbnailUrl,omitempty"`
	MuxPlaybackID          string     `json:"muxPlaybackId"`
	MuxHighlightPlaybackID string     `json:"muxHighlightPlaybackId"`
}

// Client fetches video metadata documents over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client rooted at base (e.g. "https://cdn.example.com").
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves GET {base}/{content}/{content}.json. Any transport or
// decode failure wraps ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, content string) (Video, error) {
	url := fmt.Sprintf("%s/%s/%s.json", c.base, content, content)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Video{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Video{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Video{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, res.StatusCode)
	}

	var v Video
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		return Video{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if v.Duration <= 0 {
		return Video{}, fmt.Errorf("%w: missing duration", ErrUnavailable)
	}
	return v, nil
}
