package calendar

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/storage/models"
)

// ReservationStore is the reservation access the reconciler needs.
type ReservationStore interface {
	GetByExternalID(ctx context.Context, propertyID, externalID string) (*models.Reservation, error)
	FindOverlapping(ctx context.Context, propertyID string, checkIn, checkOut models.Date) ([]models.Reservation, error)
	Create(ctx context.Context, res *models.Reservation) error
	UpdateFromFeed(ctx context.Context, res *models.Reservation) error
}

// ReconcileResult counts what happened to a property's candidates.
// Created + Updated + Skipped == Total.
type ReconcileResult struct {
	Created int
	Updated int
	Skipped int
	Total   int
}

// Reconciler applies candidate reservations to the store, keyed on
// (property, external id).
type Reconciler struct {
	store  ReservationStore
	logger *zap.Logger
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store ReservationStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile processes candidates in order:
//   - a reservation already imported under the same external id gets its
//     dates and guest name refreshed;
//   - otherwise a candidate whose stay intersects any existing reservation
//     of the property is skipped without writing anything;
//   - otherwise it is inserted.
//
// A skipped candidate is looked at again on every run. The first store
// error stops processing and is returned with the counts so far.
func (r *Reconciler) Reconcile(ctx context.Context, propertyID string, candidates []models.Reservation) (ReconcileResult, error) {
	var result ReconcileResult

	for i := range candidates {
		cand := candidates[i]
		if cand.ExternalID == nil || *cand.ExternalID == "" {
			return result, fmt.Errorf("candidate %d has no external id", i)
		}
		externalID := *cand.ExternalID

		existing, err := r.store.GetByExternalID(ctx, propertyID, externalID)
		if err != nil {
			return result, fmt.Errorf("looking up %s: %w", externalID, err)
		}

		if existing != nil {
			existing.CheckIn = cand.CheckIn
			existing.CheckOut = cand.CheckOut
			existing.GuestName = cand.GuestName
			existing.Source = models.SourceICal
			if err := r.store.UpdateFromFeed(ctx, existing); err != nil {
				return result, fmt.Errorf("updating %s: %w", externalID, err)
			}
			result.Updated++
			result.Total++
			continue
		}

		conflicts, err := r.store.FindOverlapping(ctx, propertyID, cand.CheckIn, cand.CheckOut)
		if err != nil {
			return result, fmt.Errorf("checking conflicts for %s: %w", externalID, err)
		}
		if len(conflicts) > 0 {
			r.logger.Debug("skipping conflicting feed reservation",
				zap.String("property_id", propertyID),
				zap.String("external_id", externalID),
				zap.Stringer("check_in", cand.CheckIn),
				zap.Stringer("check_out", cand.CheckOut),
				zap.String("conflicts_with", conflicts[0].ID),
			)
			result.Skipped++
			result.Total++
			continue
		}

		cand.PropertyID = propertyID
		cand.Status = models.ReservationConfirmed
		cand.Source = models.SourceICal
		if err := r.store.Create(ctx, &cand); err != nil {
			return result, fmt.Errorf("inserting %s: %w", externalID, err)
		}
		result.Created++
		result.Total++
	}

	return result, nil
}
