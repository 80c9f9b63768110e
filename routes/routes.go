package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/upb/chat-relay/app"
	"github.com/upb/chat-relay/middleware"
	"github.com/upb/chat-relay/utils"
)

// SetupRoutes configures all application routes and middleware.
// No request timeout middleware is mounted: a stream lives as long as the
// upstream keeps producing, and each upstream call has its own timeout.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Landing page and health check
	r.Get("/", deps.HealthHandler.HandleIndex)
	r.Get("/healthz", deps.HealthHandler.HandleHealth)

	// Chat endpoints
	if deps.Config.Relay.IsStreaming() {
		r.Post("/chat", deps.ChatHandler.HandleChatStream)
	} else {
		r.Post("/chat", deps.ChatHandler.HandleChat)
	}
	r.Post("/chat/stream", deps.ChatHandler.HandleChatStream)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", deps.HealthHandler.HandleStatus)
	})

	// Prometheus metrics
	if deps.MetricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}
