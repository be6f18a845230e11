package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rental-sync/backend/internal/storage/models"
)

const reservationColumns = `id, property_id, guest_name, check_in, check_out, status, source, external_id, created_at, updated_at`

// ReservationRepository provides data access for reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a reservation. Status defaults to confirmed.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	res.ID = GenerateID()
	res.CreatedAt = r.Now()
	res.UpdatedAt = res.CreatedAt
	if res.Status == "" {
		res.Status = models.ReservationConfirmed
	}

	_, err := r.exec(ctx, `
		INSERT INTO reservations (
			id, property_id, guest_name, check_in, check_out,
			status, source, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.PropertyID, res.GuestName, res.CheckIn, res.CheckOut,
		res.Status, res.Source, res.ExternalID, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its ID. It returns nil if none exists.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	res := &models.Reservation{}
	err := r.get(ctx, res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

// GetByExternalID finds the reservation imported for a feed UID. It returns
// nil if the UID has not been imported for the property.
func (r *ReservationRepository) GetByExternalID(ctx context.Context, propertyID, externalID string) (*models.Reservation, error) {
	res := &models.Reservation{}
	err := r.get(ctx, res, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE property_id = ? AND external_id = ?
	`, propertyID, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation by external id: %w", err)
	}
	return res, nil
}

// FindOverlapping returns reservations of the property, of any source or
// status, whose stay intersects [checkIn, checkOut).
func (r *ReservationRepository) FindOverlapping(ctx context.Context, propertyID string, checkIn, checkOut models.Date) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := r.selectAll(ctx, &reservations, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE property_id = ? AND check_in < ? AND check_out > ?
		ORDER BY check_in
	`, propertyID, checkOut, checkIn)
	if err != nil {
		return nil, fmt.Errorf("querying overlapping reservations: %w", err)
	}
	return reservations, nil
}

// UpdateFromFeed rewrites the feed-owned fields of an imported reservation:
// stay dates, guest name and source.
func (r *ReservationRepository) UpdateFromFeed(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = r.Now()

	result, err := r.exec(ctx, `
		UPDATE reservations SET
			check_in = ?, check_out = ?, guest_name = ?, source = ?, updated_at = ?
		WHERE id = ?
	`, res.CheckIn, res.CheckOut, res.GuestName, res.Source, res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}

	ok, err := affectedOne(result)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}
	if !ok {
		return fmt.Errorf("reservation %s: %w", res.ID, ErrNotFound)
	}
	return nil
}

// ListByProperty retrieves a property's reservations ordered by check-in.
func (r *ReservationRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := r.selectAll(ctx, &reservations, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE property_id = ?
		ORDER BY check_in
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	return reservations, nil
}

// Count returns the number of reservations.
func (r *ReservationRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM reservations`); err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return n, nil
}
