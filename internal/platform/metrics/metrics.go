package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback service.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	transportCommandsTotal prometheus.Counter
	rateRecomputesTotal    prometheus.Counter
	interactionsTotal      prometheus.Counter
	surveyPromptsTotal     prometheus.Counter
	activeSessions         prometheus.Gauge
	errorsTotal            prometheus.Counter
}

// New creates and registers Prometheus metrics for the playback service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_requests_total",
		Help: "Total number of HTTP requests received",
	})
	transportCommandsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_transport_commands_total",
		Help: "Total number of transport commands fanned out to stream sets",
	})
	rateRecomputesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_rate_recomputes_total",
		Help: "Total number of automated playback rate recomputations",
	})
	interactionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_interactions_total",
		Help: "Total number of user control interactions recorded",
	})
	surveyPromptsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_survey_prompts_total",
		Help: "Total number of survey prompts issued on fullscreen exit",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_active_sessions",
		Help: "Number of playback sessions currently mounted",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		transportCommandsTotal,
		rateRecomputesTotal,
		interactionsTotal,
		surveyPromptsTotal,
		activeSessions,
		errorsTotal,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		transportCommandsTotal: transportCommandsTotal,
		rateRecomputesTotal:    rateRecomputesTotal,
		interactionsTotal:      interactionsTotal,
		surveyPromptsTotal:     surveyPromptsTotal,
		activeSessions:         activeSessions,
		errorsTotal:            errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncTransportCommands increments the transport command counter.
func (m *Metrics) IncTransportCommands() {
	m.transportCommandsTotal.Inc()
}

// IncRateRecomputes increments the automated rate recomputation counter.
func (m *Metrics) IncRateRecomputes() {
	m.rateRecomputesTotal.Inc()
}

// IncInteractions increments the user interaction counter.
func (m *Metrics) IncInteractions() {
	m.interactionsTotal.Inc()
}

// IncSurveyPrompts increments the survey prompt counter.
func (m *Metrics) IncSurveyPrompts() {
	m.surveyPromptsTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
