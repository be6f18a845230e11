package calendar

import "github.com/rental-sync/backend/internal/storage/models"

// DefaultGuestName is used for events without a SUMMARY.
const DefaultGuestName = "Airbnb reservation"

// Mapper turns feed events into candidate reservations.
type Mapper struct {
	defaultGuestName string
}

// NewMapper creates a mapper. An empty placeholder falls back to
// DefaultGuestName.
func NewMapper(defaultGuestName string) *Mapper {
	if defaultGuestName == "" {
		defaultGuestName = DefaultGuestName
	}
	return &Mapper{defaultGuestName: defaultGuestName}
}

// ToCandidate builds the reservation an event stands for. The UID becomes the
// external id verbatim.
func (m *Mapper) ToCandidate(event models.CalendarEvent, propertyID string) models.Reservation {
	guestName := event.Summary
	if guestName == "" {
		guestName = m.defaultGuestName
	}
	externalID := event.UID

	return models.Reservation{
		PropertyID: propertyID,
		GuestName:  guestName,
		CheckIn:    event.Start,
		CheckOut:   event.End,
		Status:     models.ReservationConfirmed,
		Source:     models.SourceICal,
		ExternalID: &externalID,
	}
}

// ToCandidates maps events in order.
func (m *Mapper) ToCandidates(events []models.CalendarEvent, propertyID string) []models.Reservation {
	candidates := make([]models.Reservation, 0, len(events))
	for _, e := range events {
		candidates = append(candidates, m.ToCandidate(e, propertyID))
	}
	return candidates
}
