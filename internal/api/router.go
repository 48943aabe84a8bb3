package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/careloop/patient-booking/internal/booking"
	"github.com/careloop/patient-booking/pkg/metrics"
)

type RouterConfig struct {
	Service *booking.Service
	Metrics *metrics.Collector
	Logger  *zap.Logger
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	// Health endpoints need live dependencies; the in-memory setup used by
	// tests and the simulator runs without them.
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	// Booking endpoints
	r.Post("/bookings", addBookingHandler(cfg.Service, cfg.Metrics))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Service, cfg.Metrics))
	r.Get("/patients/{patientId}/bookings/next", nextBookingHandler(cfg.Service))

	return r
}
