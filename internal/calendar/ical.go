// Package calendar turns booking-platform iCal feeds into reservations and
// runs the sync around them.
package calendar

import (
	"errors"
	"strings"
	"time"

	"github.com/rental-sync/backend/internal/storage/models"
)

// ErrInvalidDate is returned by ParseDate for values without a usable
// YYYYMMDD prefix.
var ErrInvalidDate = errors.New("invalid iCal date")

var textUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\N`, "\n",
	`\,`, ",",
	`\;`, ";",
)

// Parse extracts the VEVENTs of an iCal feed. It never fails: malformed
// lines are ignored and events missing UID, DTSTART or DTEND are dropped.
// Events come back in feed order, duplicates included.
//
// Only UID, SUMMARY, DESCRIPTION, DTSTART and DTEND are read. Property
// parameters are ignored, as are fields of components nested inside an
// event (VALARM).
func Parse(raw string) []models.CalendarEvent {
	var (
		events  []models.CalendarEvent
		current *eventBuilder
		field   string
		value   strings.Builder
		nested  int
	)

	// commit applies the pending field once its value is complete, i.e.
	// when the next non-continuation line shows up.
	commit := func() {
		if current != nil && field != "" {
			current.set(field, value.String())
		}
		field = ""
		value.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")

		// Folded line: drop the single leading whitespace character.
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if field != "" {
				value.WriteString(line[1:])
			}
			continue
		}

		commit()

		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if i := strings.IndexByte(key, ';'); i != -1 {
			key = key[:i]
		}
		key = strings.ToUpper(strings.TrimSpace(key))

		switch key {
		case "BEGIN":
			component := strings.ToUpper(strings.TrimSpace(val))
			if component == "VEVENT" {
				current = &eventBuilder{}
				nested = 0
			} else if current != nil {
				nested++
			}
		case "END":
			if current == nil {
				continue
			}
			component := strings.ToUpper(strings.TrimSpace(val))
			if component == "VEVENT" {
				if event, ok := current.build(); ok {
					events = append(events, event)
				}
				current = nil
				nested = 0
			} else if nested > 0 {
				nested--
			}
		case "UID", "SUMMARY", "DESCRIPTION", "DTSTART", "DTEND":
			if current != nil && nested == 0 {
				field = key
				value.WriteString(val)
			}
		}
	}

	return events
}

// ParseDate decodes the calendar date at the start of an iCal DATE or
// DATE-TIME value. Anything after YYYYMMDD (time, UTC marker) is ignored
// and no zone conversion happens, so 20240315T230000Z is 2024-03-15.
func ParseDate(value string) (models.Date, error) {
	value = strings.TrimSpace(value)
	if len(value) < 8 {
		return models.Date{}, ErrInvalidDate
	}
	t, err := time.Parse("20060102", value[:8])
	if err != nil {
		return models.Date{}, ErrInvalidDate
	}
	return models.DateOf(t), nil
}

type eventBuilder struct {
	event    models.CalendarEvent
	hasStart bool
	hasEnd   bool
}

// set records a field. Repeated fields overwrite earlier ones; an
// undecodable date clears the date so the event is dropped.
func (b *eventBuilder) set(field, value string) {
	switch field {
	case "UID":
		b.event.UID = value
	case "SUMMARY":
		b.event.Summary = textUnescaper.Replace(value)
	case "DESCRIPTION":
		b.event.Description = textUnescaper.Replace(value)
	case "DTSTART":
		d, err := ParseDate(value)
		b.event.Start, b.hasStart = d, err == nil
	case "DTEND":
		d, err := ParseDate(value)
		b.event.End, b.hasEnd = d, err == nil
	}
}

func (b *eventBuilder) build() (models.CalendarEvent, bool) {
	if b.event.UID == "" || !b.hasStart || !b.hasEnd {
		return models.CalendarEvent{}, false
	}
	return b.event, true
}
