package models

import "time"

// Reservation statuses.
const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

// Reservation sources.
const (
	SourceICal   = "ical"
	SourceManual = "manual"
)

// Reservation is a stay booked against a property, either entered by hand
// or imported from the property's calendar feed.
type Reservation struct {
	ID         string    `db:"id" json:"id"`
	PropertyID string    `db:"property_id" json:"property_id"`
	GuestName  string    `db:"guest_name" json:"guest_name"`
	CheckIn    Date      `db:"check_in" json:"check_in"`
	CheckOut   Date      `db:"check_out" json:"check_out"`
	Status     string    `db:"status" json:"status"`
	Source     string    `db:"source" json:"source"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the stay intersects the half-open range
// [checkIn, checkOut).
func (r *Reservation) Overlaps(checkIn, checkOut Date) bool {
	return r.CheckIn.Before(checkOut) && r.CheckOut.After(checkIn)
}
