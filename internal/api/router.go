package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
	"github.com/symptomcheck/scheduling-engine/internal/booking"
	"github.com/symptomcheck/scheduling-engine/internal/payments"
)

type RouterConfig struct {
	Engine    *booking.Engine
	Windows   availability.Store
	Publisher *payments.Publisher
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Engine))
	r.Get("/appointments", listAppointmentsHandler(cfg.Engine))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Engine))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Engine))

	// Slot discovery and availability authoring
	r.Get("/doctors/{id}/slots", openSlotsHandler(cfg.Engine))
	r.Get("/doctors/{id}/availability", listWindowsHandler(cfg.Windows))
	r.Post("/doctors/{id}/availability", createWindowHandler(cfg.Windows))
	r.Delete("/availability/{id}", deleteWindowHandler(cfg.Windows))

	// Payment notification ingress
	r.Post("/payments/notifications", paymentNotificationHandler(cfg.Publisher))

	return r
}
