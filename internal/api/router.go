package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vidacall/telehealth-scheduling/internal/identity"
	"github.com/vidacall/telehealth-scheduling/internal/messaging"
	"github.com/vidacall/telehealth-scheduling/internal/schedule"
)

type RouterConfig struct {
	Schedule  *schedule.Service
	Messaging *messaging.Service
	Identity  *identity.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
	RateRPS   float64
	RateBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	if cfg.RateRPS > 0 {
		r.Use(NewRateLimiter(cfg.RateRPS, cfg.RateBurst).Middleware)
	}

	// Health and metrics stay unauthenticated
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", registerHandler(cfg.Identity))
	r.Post("/auth/login", loginHandler(cfg.Identity))

	// Everything else requires a session
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Identity))

		r.Get("/professionals", listProfessionalsHandler(cfg.Identity))
		r.Get("/professionals/{id}/slots", listSlotsHandler(cfg.Schedule))
		r.Get("/professionals/{id}/availability", listAvailabilityHandler(cfg.Schedule))

		r.Post("/availability", addAvailabilityRuleHandler(cfg.Schedule))
		r.Delete("/availability/{id}", deactivateAvailabilityRuleHandler(cfg.Schedule))

		r.Post("/appointments", createAppointmentHandler(cfg.Schedule))
		r.Get("/appointments", listAppointmentsHandler(cfg.Schedule))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Schedule))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Schedule))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Schedule))

		r.Get("/appointments/{id}/messages", listMessagesHandler(cfg.Messaging))
		r.Post("/appointments/{id}/messages", sendMessageHandler(cfg.Messaging))
	})

	return r
}
