package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lecture-01/lecture-01.json" {
			t.Errorf("path = %s, want /lecture-01/lecture-01.json", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"duration": 312.4,
			"muxPlaybackId": "abc123",
			"muxHighlightPlaybackId": "def456",
			"thumbnailUrl": "https://cdn.example.com/thumb.png",
			"subtitles": [
				{"start_time": 0, "end_time": 4.2, "text": "Welcome.", "flesch_reading_ease": 82.1, "words_per_minute": 140, "complexity_score": 1.1}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	v, err := c.Fetch(context.Background(), "lecture-01")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if v.Duration != 312.4 {
		t.Errorf("duration = %v, want 312.4", v.Duration)
	}
	if v.MuxPlaybackID != "abc123" || v.MuxHighlightPlaybackID != "def456" {
		t.Errorf("playback ids = %s/%s", v.MuxPlaybackID, v.MuxHighlightPlaybackID)
	}
	if len(v.Subtitles) != 1 {
		t.Fatalf("subtitles = %d, want 1", len(v.Subtitles))
	}
	if got := v.Subtitles[0].ComplexityScore; got != 1.1 {
		t.Errorf("complexity score = %v, want 1.1", got)
	}
}

func TestClient_Fetch_not_found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "missing"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClient_Fetch_bad_json(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "lecture-01"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClient_Fetch_missing_duration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"muxPlaybackId": "abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "lecture-01"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClient_Fetch_server_down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "lecture-01"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
