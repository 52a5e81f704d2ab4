package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediasync/internal/metadata"
	"mediasync/internal/platform/config"
	"mediasync/internal/platform/logger"
	"mediasync/internal/platform/metrics"
	"mediasync/internal/player"
	"mediasync/internal/settings"
	"mediasync/internal/survey"
	"mediasync/internal/telemetry"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	metadataBase := config.GetEnv("METADATA_BASE_URL", "http://localhost:9000")
	telemetryPath := config.GetEnv("TELEMETRY_DB_PATH", "telemetry.db")
	redisAddr := config.GetEnv("REDIS_ADDR", "")
	pollInterval := config.GetEnvDurationMS("POLL_INTERVAL_MS", player.DefaultPollInterval)
	idleTimeout := config.GetEnvDurationMS("IDLE_TIMEOUT_MS", player.DefaultIdleTimeout)
	settingsDelay := config.GetEnvDurationMS("SETTINGS_WRITE_DELAY_MS", settings.DefaultWriteDelay)
	actionDebounce := config.GetEnvDurationMS("ACTION_DEBOUNCE_MS", telemetry.DefaultActionDebounce)

	log := logger.New(logLevel, logFormat)

	var settingsStore settings.Store
	if redisAddr != "" {
		store, err := settings.NewRedisStore(settings.RedisConfig{
			Address:   redisAddr,
			Password:  config.GetEnv("REDIS_PASSWORD", ""),
			DB:        config.GetEnvInt("REDIS_DB", 0),
			KeyPrefix: config.GetEnv("REDIS_KEY_PREFIX", "player:settings:"),
		})
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		settingsStore = store
	} else {
		log.Warn("REDIS_ADDR not set, settings will not survive restarts")
		settingsStore = settings.NewMemoryStore()
	}

	telemetryStore, err := telemetry.Open(telemetryPath)
	if err != nil {
		log.Error("telemetry store open failed", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	registry := player.NewRegistry()

	h := player.NewHandler(player.HandlerConfig{
		Registry:      registry,
		Metadata:      metadata.NewClient(metadataBase, 10*time.Second),
		Settings:      settingsStore,
		Actions:       telemetry.NewActionLogger(telemetryStore, actionDebounce, log),
		Survey:        survey.NewTrigger(log, met),
		SurveyStore:   telemetryStore,
		Log:           log,
		Metrics:       met,
		PollInterval:  pollInterval,
		IdleTimeout:   idleTimeout,
		SettingsDelay: settingsDelay,
	})

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetActiveSessions(registry.Count()) }).ServeHTTP(w, req)
	})
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/transport", h.Transport)
		r.Post("/seek", h.Seek)
		r.Post("/skip", h.Skip)
		r.Post("/rate", h.Rate)
		r.Post("/captions", h.Captions)
		r.Post("/highlight", h.Highlight)
		r.Post("/volume", h.Volume)
		r.Post("/mute", h.Mute)
		r.Post("/fullscreen", h.Fullscreen)
		r.Get("/ticks", h.Ticks)
	})
	r.Post("/surveys/responses", h.SubmitSurveyResponse)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"metadata_base_url", metadataBase,
		"poll_interval", pollInterval.String(),
		"idle_timeout", idleTimeout.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	// Sessions flush pending settings writes on close.
	registry.CloseAll()
	if err := settingsStore.Close(); err != nil {
		log.Error("settings store close error", "error", err)
	}
	if err := telemetryStore.Close(); err != nil {
		log.Error("telemetry store close error", "error", err)
	}

	log.Info("server stopped")
}
