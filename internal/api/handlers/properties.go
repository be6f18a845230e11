package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/api/middleware"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/storage/models"
)

// PropertyRequest is the body of create and update calls. Omitted fields
// keep their current value on update.
type PropertyRequest struct {
	Name        *string `json:"name"`
	FeedURL     *string `json:"feed_url"`
	SyncEnabled *bool   `json:"sync_enabled"`
}

func (req PropertyRequest) apply(p *models.Property) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.FeedURL != nil {
		p.FeedURL = strings.TrimSpace(*req.FeedURL)
	}
	if req.SyncEnabled != nil {
		p.SyncEnabled = *req.SyncEnabled
	}
}

func validateProperty(p *models.Property) string {
	if p.Name == "" {
		return "Name is required"
	}
	if p.FeedURL != "" {
		u, err := url.Parse(p.FeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "Feed URL must be an absolute http or https URL"
		}
	}
	return ""
}

// ListProperties returns all properties.
func ListProperties(properties *storage.PropertyRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := properties.List(r.Context())
		if err != nil {
			logger.Error("listing properties", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query properties")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateProperty adds a property. sync_enabled defaults to true.
func CreateProperty(properties *storage.PropertyRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		p := &models.Property{SyncEnabled: true}
		req.apply(p)
		if msg := validateProperty(p); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		if err := properties.Create(r.Context(), p); err != nil {
			logger.Error("creating property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create property")
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

// GetProperty returns a single property by ID.
func GetProperty(properties *storage.PropertyRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := properties.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			logger.Error("loading property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdateProperty changes the name, feed URL or sync flag of a property.
func UpdateProperty(properties *storage.PropertyRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req PropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		p, err := properties.GetByID(ctx, mux.Vars(r)["id"])
		if err != nil {
			logger.Error("loading property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if p == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		req.apply(p)
		if msg := validateProperty(p); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		if err := properties.Update(ctx, p); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
				return
			}
			logger.Error("updating property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update property")
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

// DeleteProperty removes a property and its reservations.
func DeleteProperty(properties *storage.PropertyRepository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := properties.Delete(r.Context(), mux.Vars(r)["id"])
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}
		if err != nil {
			logger.Error("deleting property", zap.Error(err))
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete property")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
