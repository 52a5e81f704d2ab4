// Package survey selects short ecological-momentary-assessment prompts
// matching the control the viewer most recently used.
package survey

import (
	"log/slog"

	"mediasync/internal/platform/metrics"
)

// Question is one rating prompt (answered 1-5, very hard to very easy).
type Question struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Condition string `json:"condition"`
}

var questions = []Question{
	{ID: "volume", Text: "How easy was it to understand the speech?", Condition: "volume"},
	{ID: "speed", Text: "How easy was it to watch at this speed?", Condition: "speed"},
	{ID: "captions", Text: "How easy was it to understand with the captions?", Condition: "captions"},
	{ID: "highlight", Text: "How easy was it to follow the speakers?", Condition: "highlight"},
	{ID: "general", Text: "How easy was your overall viewing experience?", Condition: "general"},
}

// Questions returns the full prompt catalog.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// QuestionFor maps an interaction category to its prompt. Categories without
// a dedicated prompt fall back to the general question.
func QuestionFor(category string) Question {
	switch category {
	case "volume", "speed", "captions", "highlight":
		for _, q := range questions {
			if q.Condition == category {
				return q
			}
		}
	}
	return questions[len(questions)-1]
}

// Trigger issues prompts on fullscreen exit. The caller delivers the
// returned question to the viewer and never waits on anything here.
type Trigger struct {
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewTrigger returns a trigger. Metrics may be nil.
func NewTrigger(log *slog.Logger, m *metrics.Metrics) *Trigger {
	return &Trigger{log: log, metrics: m}
}

// Fire selects the prompt for the given category.
func (t *Trigger) Fire(user, category string) Question {
	q := QuestionFor(category)
	t.log.Info("survey prompt issued",
		slog.String("user", user),
		slog.String("category", category),
		slog.String("question_id", q.ID))
	if t.metrics != nil {
		t.metrics.IncSurveyPrompts()
	}
	return q
}
