package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/api/middleware"
	"github.com/rental-sync/backend/internal/calendar"
	"github.com/rental-sync/backend/internal/storage/models"
)

// ScheduledSyncResponse is returned by the scheduled trigger.
type ScheduledSyncResponse struct {
	Success             bool                        `json:"success"`
	Message             string                      `json:"message,omitempty"`
	LogID               string                      `json:"log_id"`
	StartedAt           time.Time                   `json:"started_at"`
	FinishedAt          *time.Time                  `json:"finished_at,omitempty"`
	PropertiesSynced    int                         `json:"properties_synced"`
	ReservationsCreated int                         `json:"reservations_created"`
	Results             []models.PropertySyncResult `json:"results"`
}

// ScheduledSyncFailure is returned when a scheduled run fails as a whole.
type ScheduledSyncFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	LogID   string `json:"log_id"`
}

// SyncProperty synchronises a single property on behalf of an operator.
// The property's sync flag is not consulted.
func SyncProperty(triggers *calendar.Triggers, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		_, batch, err := triggers.SyncProperty(r.Context(), id)
		switch {
		case errors.Is(err, calendar.ErrPropertyNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		case errors.Is(err, calendar.ErrNoFeedURL):
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Property has no calendar feed URL configured")
			return
		case err != nil:
			logger.Error("property sync failed", zap.String("property_id", id), zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to synchronise property")
			return
		}

		writeJSON(w, http.StatusOK, batch)
	}
}

// SyncAll synchronises every enabled property on behalf of an operator.
func SyncAll(triggers *calendar.Triggers, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, batch, err := triggers.SyncAll(r.Context())
		if err != nil {
			logger.Error("sync of all properties failed", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, batch)
	}
}

// ScheduledSync is called by an external scheduler. It reports the run log
// id with the results.
func ScheduledSync(triggers *calendar.Triggers, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, batch, err := triggers.Scheduled(r.Context())
		if err != nil {
			logger.Error("scheduled sync failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ScheduledSyncFailure{
				Success: false,
				Error:   err.Error(),
				LogID:   run.ID,
			})
			return
		}
		writeJSON(w, http.StatusOK, NewScheduledSyncResponse(run, batch))
	}
}

// NewScheduledSyncResponse flattens a finished run and its batch.
func NewScheduledSyncResponse(run *models.SyncRun, batch *models.BatchSyncResult) ScheduledSyncResponse {
	message := batch.Message
	if message == "" {
		message = "scheduled sync completed"
	}
	return ScheduledSyncResponse{
		Success:             batch.Success,
		Message:             message,
		LogID:               run.ID,
		StartedAt:           run.StartedAt,
		FinishedAt:          run.FinishedAt,
		PropertiesSynced:    run.PropertiesSynced,
		ReservationsCreated: run.ReservationsCreated,
		Results:             batch.Results,
	}
}
