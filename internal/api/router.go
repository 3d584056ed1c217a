package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/api/middleware"
	"github.com/famcash/push-server/internal/config"
	"github.com/famcash/push-server/internal/handlers"
	"github.com/famcash/push-server/internal/push"
	"github.com/famcash/push-server/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, logger zerolog.Logger, registry store.Registry, redisStore *store.RedisStore, dispatcher *push.Dispatcher, vapidKey string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (no-op without Redis)
	limiter := middleware.NewRateLimiter(redisStore, logger)
	r.Use(limiter.Middleware)

	// CORS - the app frontend and the service worker registration page
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.SecretHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(registry, redisStore, dispatcher, vapidKey)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/vapid/public-key", h.VAPIDPublicKey)

	// Delivery path; every caller (app backend or cron) presents the secret
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSecret(cfg.ServiceSecret))

		r.Post("/notify", h.Notify)
	})

	return r
}
