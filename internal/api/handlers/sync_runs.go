package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/api/middleware"
	"github.com/rental-sync/backend/internal/storage"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// ListSyncRuns returns the most recent runs, newest first.
func ListSyncRuns(runs *storage.SyncRunRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxRunLimit {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "limit must be between 1 and 200")
				return
			}
			limit = n
		}

		list, err := runs.ListRecent(r.Context(), limit)
		if err != nil {
			logger.Error("listing sync runs", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sync runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetSyncRun returns one run.
func GetSyncRun(runs *storage.SyncRunRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := runs.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			logger.Error("loading sync run", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sync run")
			return
		}
		if run == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Sync run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}
