package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adhealth/clinic-scheduling/internal/appointment"
	"github.com/adhealth/clinic-scheduling/internal/provider"
)

type RouterConfig struct {
	Service   *appointment.Service
	Directory provider.Directory
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Logger    *zap.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/providers", listProvidersHandler(cfg.Directory))
	r.Get("/providers/{id}", getProviderHandler(cfg.Directory))
	r.Get("/providers/{id}/availability", checkAvailabilityHandler(cfg.Service))

	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Service))
	r.Put("/appointments/{id}/flow", updateFlowHandler(cfg.Service))
	r.Post("/appointments/{id}/acknowledge", acknowledgeHandler(cfg.Service))
	r.Post("/appointments/{id}/telemedicine", meetingLinkHandler(cfg.Service))

	return r
}
