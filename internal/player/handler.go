package player

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediasync/internal/media"
	"mediasync/internal/metadata"
	"mediasync/internal/platform/metrics"
	"mediasync/internal/settings"
)

// MetadataFetcher retrieves the per-content metadata document.
type MetadataFetcher interface {
	Fetch(ctx context.Context, content string) (metadata.Video, error)
}

// SurveyRecorder persists submitted survey ratings.
type SurveyRecorder interface {
	InsertSurveyResponse(ctx context.Context, user, questionID, question string, response int) error
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	Registry      *Registry
	Metadata      MetadataFetcher
	Settings      settings.Store
	Actions       ActionRecorder
	Survey        SurveyTrigger
	SurveyStore   SurveyRecorder
	Log           *slog.Logger
	Metrics       *metrics.Metrics
	PollInterval  time.Duration
	IdleTimeout   time.Duration
	SettingsDelay time.Duration
}

// Handler exposes the playback session HTTP surface using go-chi.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler returns a Handler over the given collaborators. Metrics,
// Actions, Survey, and SurveyStore may be nil to disable the corresponding
// concern (e.g. in tests).
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

type createSessionRequest struct {
	User    string `json:"user"`
	Content string `json:"content"`
}

// CreateSession handles POST /sessions. It fetches the content metadata,
// loads the user's stored settings, mounts the session, and starts the
// engine. A metadata failure blocks creation; a settings read failure falls
// back to defaults.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" || req.Content == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	meta, err := h.cfg.Metadata.Fetch(r.Context(), req.Content)
	if err != nil {
		h.cfg.Log.Error("metadata fetch failed",
			slog.String("content", req.Content),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load video metadata"})
		return
	}

	st := settings.Default()
	if stored, ok, loadErr := h.cfg.Settings.Load(r.Context(), req.User); loadErr != nil {
		h.cfg.Log.Warn("settings load failed, using defaults",
			slog.String("user", req.User),
			slog.String("error", loadErr.Error()))
	} else if ok {
		st = stored
	}

	session := NewSession(SessionConfig{
		ID:       uuid.New().String(),
		Content:  req.Content,
		Metadata: meta,
		Settings: st,
		Context: SessionContext{
			User:     req.User,
			Settings: settings.NewWriter(h.cfg.Settings, req.User, h.cfg.SettingsDelay, h.cfg.Log),
			Actions:  h.cfg.Actions,
			Survey:   h.cfg.Survey,
		},
		Log:          h.cfg.Log,
		Metrics:      h.cfg.Metrics,
		PollInterval: h.cfg.PollInterval,
		IdleTimeout:  h.cfg.IdleTimeout,
	})

	h.cfg.Registry.Add(session)
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetActiveSessions(h.cfg.Registry.Count())
	}

	h.cfg.Log.Info("session mounted",
		slog.String("session_id", session.ID()),
		slog.String("user", req.User),
		slog.String("content", req.Content))
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// DeleteSession handles DELETE /sessions/{session_id}: the engine stops and
// pending settings flush.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	session, ok := h.cfg.Registry.Remove(id)
	if ok {
		session.Close()
		h.cfg.Log.Info("session unmounted", slog.String("session_id", id))
	}
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetActiveSessions(h.cfg.Registry.Count())
	}
	w.WriteHeader(http.StatusNoContent)
}

type transportRequest struct {
	Action string `json:"action"`
}

// Transport handles POST /sessions/{session_id}/transport with
// {"action": "play"|"pause"}.
func (h *Handler) Transport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req transportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := session.PlayPause(req.Action); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type seekRequest struct {
	Time float64 `json:"time"`
}

// Seek handles POST /sessions/{session_id}/seek with {"time": seconds}.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	session.Seek(req.Time)
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type skipRequest struct {
	Delta float64 `json:"delta"`
}

// Skip handles POST /sessions/{session_id}/skip with {"delta": seconds}.
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	session.Skip(req.Delta)
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type rateRequest struct {
	Action string `json:"action"`
}

// Rate handles POST /sessions/{session_id}/rate with
// {"action": "slower"|"faster"|"automate"}. Manual steps while automation is
// enabled are rejected with 409.
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "slower":
		_, err = session.SlowDown()
	case "faster":
		_, err = session.SpeedUp()
	case "automate":
		session.ToggleAutomatedSpeed()
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err != nil {
		if errors.Is(err, ErrRateAutomated) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type captionsRequest struct {
	Action string `json:"action"`
}

// Captions handles POST /sessions/{session_id}/captions with
// {"action": "toggle"|"simple"}.
func (h *Handler) Captions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req captionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "toggle":
		session.ToggleCaptions()
	case "simple":
		session.SimplifyCaptions()
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// Highlight handles POST /sessions/{session_id}/highlight, switching between
// the normal and speaker-highlight cuts.
func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.ToggleHighlight()
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type volumeRequest struct {
	Track  string  `json:"track"`
	Volume float64 `json:"volume"`
}

// Volume handles POST /sessions/{session_id}/volume with
// {"track": "speaker"|"music"|"other", "volume": 0..1}.
func (h *Handler) Volume(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := session.SetVolume(media.Kind(req.Track), req.Volume); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type muteRequest struct {
	Track string `json:"track"`
}

// Mute handles POST /sessions/{session_id}/mute with {"track": ...}.
func (h *Handler) Mute(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := session.ToggleMute(media.Kind(req.Track)); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

type fullscreenRequest struct {
	Action string `json:"action"`
}

// Fullscreen handles POST /sessions/{session_id}/fullscreen with
// {"action": "enter"|"exit"|"input"}. Exiting reports the survey prompt
// selected for the most recent interaction category, if any.
func (h *Handler) Fullscreen(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req fullscreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "enter":
		session.EnterFullscreen()
	case "input":
		session.FullscreenInput()
	case "exit":
		prompt := session.ExitFullscreen()
		writeJSON(w, http.StatusOK, map[string]any{
			"activity": session.Activity(),
			"prompt":   prompt,
		})
		return
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": session.Activity()})
}

type surveyResponseRequest struct {
	User       string `json:"user"`
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
	Response   int    `json:"response"`
}

// SubmitSurveyResponse handles POST /surveys/responses.
func (h *Handler) SubmitSurveyResponse(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SurveyStore == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var req surveyResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" || req.QuestionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.cfg.SurveyStore.InsertSurveyResponse(r.Context(), req.User, req.QuestionID, req.Question, req.Response); err != nil {
		h.cfg.Log.Error("survey response write failed",
			slog.String("user", req.User),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "session_id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	session, err := h.cfg.Registry.Get(id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
