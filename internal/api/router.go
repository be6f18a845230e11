// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/api/handlers"
	"github.com/rental-sync/backend/internal/api/middleware"
	"github.com/rental-sync/backend/internal/calendar"
	"github.com/rental-sync/backend/internal/metrics"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/websocket"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	DB           *storage.DB
	Properties   *storage.PropertyRepository
	Reservations *storage.ReservationRepository
	Runs         *storage.SyncRunRepository
	Triggers     *calendar.Triggers
	Scheduler    *calendar.Scheduler // nil when the in-process scheduler is off
	Hub          *websocket.Hub
	Metrics      *metrics.Registry
	Gatherer     prometheus.Gatherer // nil disables /metrics
	Logger       *zap.Logger

	APIKey               string
	SchedulerToken       string
	TriggerRatePerMinute int
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(deps Dependencies) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))
	r.Use(middleware.Metrics(deps.Metrics))

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Unauthenticated endpoints
	api.HandleFunc("/health", handlers.HealthCheck(deps.DB)).Methods("GET")

	// The scheduled trigger carries no caller identity, only the shared token.
	scheduled := api.PathPrefix("/sync/scheduled").Subrouter()
	scheduled.Use(middleware.RequireSchedulerToken(deps.SchedulerToken))
	scheduled.HandleFunc("", handlers.ScheduledSync(deps.Triggers, logger)).Methods("POST")

	// Operator endpoints
	op := api.NewRoute().Subrouter()
	op.Use(middleware.RequireAPIKey(deps.APIKey))

	op.HandleFunc("/status", handlers.Status(deps.Properties, deps.Reservations, deps.Runs, deps.Hub, deps.Scheduler, logger)).Methods("GET")
	op.HandleFunc("/ws", handlers.WebSocketUpgrade(deps.Hub, logger)).Methods("GET")

	// Property endpoints
	op.HandleFunc("/properties", handlers.ListProperties(deps.Properties, logger)).Methods("GET")
	op.HandleFunc("/properties", handlers.CreateProperty(deps.Properties, logger)).Methods("POST")
	op.HandleFunc("/properties/{id}", handlers.GetProperty(deps.Properties, logger)).Methods("GET")
	op.HandleFunc("/properties/{id}", handlers.UpdateProperty(deps.Properties, logger)).Methods("PUT")
	op.HandleFunc("/properties/{id}", handlers.DeleteProperty(deps.Properties, logger)).Methods("DELETE")

	// Reservation endpoints
	op.HandleFunc("/properties/{id}/reservations", handlers.ListReservations(deps.Properties, deps.Reservations, logger)).Methods("GET")
	op.HandleFunc("/properties/{id}/reservations", handlers.CreateReservation(deps.Properties, deps.Reservations, logger)).Methods("POST")

	// Manual sync triggers
	limiter := middleware.NewRateLimiter(deps.TriggerRatePerMinute)
	op.Handle("/properties/{id}/sync", limiter.Middleware(handlers.SyncProperty(deps.Triggers, logger))).Methods("POST")
	op.Handle("/sync", limiter.Middleware(handlers.SyncAll(deps.Triggers, logger))).Methods("POST")

	// Sync run log
	op.HandleFunc("/sync-runs", handlers.ListSyncRuns(deps.Runs, logger)).Methods("GET")
	op.HandleFunc("/sync-runs/{id}", handlers.GetSyncRun(deps.Runs, logger)).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Route not found")
	})

	return r
}
