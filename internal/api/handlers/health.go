package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/calendar"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/storage/models"
	"github.com/rental-sync/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck reports whether the store is reachable. A degraded service
// answers 503.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	PropertiesCount   int             `json:"properties_count"`
	ReservationsCount int             `json:"reservations_count"`
	WebSocketClients  int             `json:"websocket_clients"`
	SchedulerEnabled  bool            `json:"scheduler_enabled"`
	NextSyncAt        *time.Time      `json:"next_sync_at,omitempty"`
	LastRun           *models.SyncRun `json:"last_run,omitempty"`
}

// Status returns a handler that provides system status information.
// scheduler may be nil when the in-process scheduler is disabled.
func Status(
	properties *storage.PropertyRepository,
	reservations *storage.ReservationRepository,
	runs *storage.SyncRunRepository,
	hub *websocket.Hub,
	scheduler *calendar.Scheduler,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var resp StatusResponse

		// Status is best effort; a failed count is logged and left at zero.
		var err error
		if resp.PropertiesCount, err = properties.Count(ctx); err != nil {
			logger.Warn("counting properties", zap.Error(err))
		}
		if resp.ReservationsCount, err = reservations.Count(ctx); err != nil {
			logger.Warn("counting reservations", zap.Error(err))
		}
		if resp.LastRun, err = runs.Latest(ctx); err != nil {
			logger.Warn("loading latest sync run", zap.Error(err))
		}
		if hub != nil {
			resp.WebSocketClients = hub.ClientCount()
		}
		if scheduler != nil {
			resp.SchedulerEnabled = true
			resp.NextSyncAt = scheduler.NextRun()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
