package calendar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-sync/backend/internal/storage/models"
)

func feed(lines ...string) string {
	return strings.Join(append([]string{"BEGIN:VCALENDAR", "VERSION:2.0"}, append(lines, "END:VCALENDAR")...), "\r\n")
}

func TestParse_AirbnbFeed(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"DTSTAMP:20240301T101010Z",
		"DTSTART;VALUE=DATE:20240315",
		"DTEND;VALUE=DATE:20240318",
		"SUMMARY:Reserved",
		"UID:1418fb94e984-a1b2c3d4@airbnb.com",
		"DESCRIPTION:Reservation URL: https://www.airbnb.com/hosting/reservations/details/HM\\n",
		" ABC123\\nPhone Number (Last 4 Digits): 1234",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20240401",
		"DTEND;VALUE=DATE:20240405",
		"SUMMARY:Airbnb (Not available)",
		"UID:7f9d0e1b2c3a-e5f6@airbnb.com",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 2)

	assert.Equal(t, "1418fb94e984-a1b2c3d4@airbnb.com", events[0].UID)
	assert.Equal(t, "Reserved", events[0].Summary)
	assert.Equal(t, "2024-03-15", events[0].Start.String())
	assert.Equal(t, "2024-03-18", events[0].End.String())
	assert.Equal(t, "Reservation URL: https://www.airbnb.com/hosting/reservations/details/HM\nABC123\nPhone Number (Last 4 Digits): 1234", events[0].Description)

	assert.Equal(t, "7f9d0e1b2c3a-e5f6@airbnb.com", events[1].UID)
	assert.Equal(t, "Airbnb (Not available)", events[1].Summary)
}

func TestParse_FoldedSummary(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:abc",
		"SUMMARY:Jean-Pierre Dupont-",
		" Martin",
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "Jean-Pierre Dupont-Martin", events[0].Summary)
}

func TestParse_FoldingStripsExactlyOneCharacter(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:abc",
		"SUMMARY:Jean",
		"  Pierre",
		"\tand\tco",
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "Jean Pierreand\tco", events[0].Summary)
}

func TestParse_FoldedUID(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef012345",
		" 6789@booking.com",
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789@booking.com", events[0].UID)
}

func TestParse_LFOnlyLineEndings(t *testing.T) {
	raw := "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:lf\nDTSTART:20240315\nDTEND:20240316\nEND:VEVENT\nEND:VCALENDAR\n"

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "lf", events[0].UID)
}

func TestParse_DropsIncompleteEvents(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:no-end",
		"DTSTART:20240315",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART:20240315",
		"DTEND:20240316",
		"SUMMARY:no uid",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:bad-date",
		"DTSTART:2024",
		"DTEND:20240316",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:",
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].UID)
}

func TestParse_UnterminatedEventIsDiscarded(t *testing.T) {
	raw := "BEGIN:VEVENT\r\nUID:dangling\r\nDTSTART:20240315\r\nDTEND:20240316\r\n"

	assert.Empty(t, Parse(raw))
}

func TestParse_NewBeginDiscardsUnfinishedEvent(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:first",
		"DTSTART:20240315",
		"BEGIN:VEVENT",
		"UID:second",
		"DTSTART:20240401",
		"DTEND:20240402",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "second", events[0].UID)
}

func TestParse_KeepsDuplicatesInFeedOrder(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT", "UID:dup", "DTSTART:20240315", "DTEND:20240316", "SUMMARY:one", "END:VEVENT",
		"BEGIN:VEVENT", "UID:other", "DTSTART:20240320", "DTEND:20240321", "END:VEVENT",
		"BEGIN:VEVENT", "UID:dup", "DTSTART:20240317", "DTEND:20240318", "SUMMARY:two", "END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"dup", "other", "dup"}, []string{events[0].UID, events[1].UID, events[2].UID})
	assert.Equal(t, "two", events[2].Summary)
}

func TestParse_IgnoresOtherFieldsAndComponents(t *testing.T) {
	raw := feed(
		"PRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN",
		"BEGIN:VTIMEZONE",
		"TZID:Europe/Paris",
		"END:VTIMEZONE",
		"UID:outside-event",
		"BEGIN:VEVENT",
		"UID:with-alarm",
		"DTSTART;TZID=Europe/Paris:20240315T150000",
		"DTEND;TZID=Europe/Paris:20240318T110000",
		"LOCATION:Somewhere",
		"DESCRIPTION:stay",
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"DESCRIPTION:Reminder",
		"TRIGGER:-PT15M",
		"END:VALARM",
		"not a field line",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "with-alarm", events[0].UID)
	assert.Equal(t, "stay", events[0].Description)
	assert.Equal(t, "2024-03-15", events[0].Start.String())
	assert.Equal(t, "2024-03-18", events[0].End.String())
}

func TestParse_UnescapesText(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		`UID:a\,b`,
		`SUMMARY:Smith\, John\; party of 4 \\ VIP`,
		"DTSTART:20240315",
		"DTEND:20240316",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, `Smith, John; party of 4 \ VIP`, events[0].Summary)
	assert.Equal(t, `a\,b`, events[0].UID)
}

func TestParse_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("<html><body>404</body></html>"))
	assert.Empty(t, Parse("END:VEVENT\r\nBEGIN:VCALENDAR"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Date
		wantErr bool
	}{
		{in: "20240315", want: models.NewDate(2024, 3, 15)},
		{in: "20240315T150000Z", want: models.NewDate(2024, 3, 15)},
		{in: "20240315T233000Z", want: models.NewDate(2024, 3, 15)},
		{in: "20240315T150000", want: models.NewDate(2024, 3, 15)},
		{in: " 20241231", want: models.NewDate(2024, 12, 31)},
		{in: "2024031", wantErr: true},
		{in: "20241332", wantErr: true},
		{in: "abcdefgh", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParse_StartAfterEndIsTolerated(t *testing.T) {
	raw := feed("BEGIN:VEVENT", "UID:backwards", "DTSTART:20240320", "DTEND:20240315", "END:VEVENT")

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.True(t, events[0].Start.After(events[0].End))
}
