package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/api/middleware"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/storage/models"
)

// CreateReservationRequest is the body of a manual booking.
type CreateReservationRequest struct {
	GuestName string `json:"guest_name"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

// ListReservations returns a property's reservations ordered by check-in.
func ListReservations(properties *storage.PropertyRepository, reservations *storage.ReservationRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		p, err := properties.GetByID(ctx, id)
		if err != nil {
			logger.Error("loading property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		list, err := reservations.ListByProperty(ctx, id)
		if err != nil {
			logger.Error("listing reservations", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateReservation books a manual stay. Stays that overlap any existing
// reservation of the property are rejected with 409.
func CreateReservation(properties *storage.PropertyRepository, reservations *storage.ReservationRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		var req CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		checkIn, err := models.ParseDate(req.CheckIn)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "check_in must be a YYYY-MM-DD date")
			return
		}
		checkOut, err := models.ParseDate(req.CheckOut)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "check_out must be a YYYY-MM-DD date")
			return
		}
		if !checkOut.After(checkIn) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "check_out must be after check_in")
			return
		}
		guest := strings.TrimSpace(req.GuestName)
		if guest == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Guest name is required")
			return
		}

		p, err := properties.GetByID(ctx, id)
		if err != nil {
			logger.Error("loading property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		conflicts, err := reservations.FindOverlapping(ctx, id, checkIn, checkOut)
		if err != nil {
			logger.Error("checking reservation conflicts", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to check availability")
			return
		}
		if len(conflicts) > 0 {
			ids := make([]string, 0, len(conflicts))
			for _, c := range conflicts {
				ids = append(ids, c.ID)
			}
			middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict,
				"Dates overlap an existing reservation", map[string]any{"conflicting_ids": ids})
			return
		}

		res := &models.Reservation{
			PropertyID: id,
			GuestName:  guest,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
			Status:     models.ReservationConfirmed,
			Source:     models.SourceManual,
		}
		if err := reservations.Create(ctx, res); err != nil {
			logger.Error("creating reservation", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create reservation")
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}
