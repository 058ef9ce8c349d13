package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/samara-ai/modelrouter/app"
	"github.com/samara-ai/modelrouter/handlers"
	"github.com/samara-ai/modelrouter/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(90 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	healthHandler := handlers.NewHealthHandler(db, deps.Logger)
	routingHandler := handlers.NewRoutingHandler(deps.Inference, deps.Logger)
	sessionHandler := handlers.NewSessionHandler(deps.Inference, deps.Logger)
	statsHandler := handlers.NewStatsHandler(deps.Inference, deps.Audit, deps.Logger)
	decisionHandler := handlers.NewDecisionHandler(deps.Decisions, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", routingHandler.HandleRoute)
		r.Post("/dispatch", routingHandler.HandleDispatch)

		r.Route("/sessions/{id}/override", func(r chi.Router) {
			r.Put("/", sessionHandler.HandleSetOverride)
			r.Get("/", sessionHandler.HandleGetOverride)
			r.Delete("/", sessionHandler.HandleClearOverride)
		})

		r.Get("/stats", statsHandler.HandleStats)

		r.Route("/decisions", func(r chi.Router) {
			r.Get("/", decisionHandler.HandleListDecisions)
			r.Get("/metrics", decisionHandler.HandleGetMetrics)
			r.Get("/{id}", decisionHandler.HandleGetDecision)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
