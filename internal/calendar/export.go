package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "finora/internal/errors"
	"finora/internal/models"
)

const icsProdID = "-//Finora//Calendar//PT"

// Snapshot is the JSON export of a calendar.
type Snapshot struct {
	Events    []models.CalendarEvent `json:"eventos"`
	Reminders []models.Reminder      `json:"lembretes"`
}

var icsPriority = map[models.Priority]int{
	models.PriorityHigh:   1,
	models.PriorityMedium: 5,
	models.PriorityLow:    9,
}

var icsEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// ExportICS renders events as an iCalendar document with CRLF line endings.
func ExportICS(evts []models.CalendarEvent) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + icsProdID,
	}
	for _, e := range evts {
		priority, ok := icsPriority[e.Priority]
		if !ok {
			priority = icsPriority[models.PriorityLow]
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+e.ID,
			"DTSTART:"+e.Date.Format("20060102"),
			"SUMMARY:"+icsEscaper.Replace(e.Title),
			"DESCRIPTION:"+icsEscaper.Replace(e.Description),
			fmt.Sprintf("PRIORITY:%d", priority),
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// ExportJSON renders events and reminders as a Snapshot.
func ExportJSON(evts []models.CalendarEvent, reminders []models.Reminder) ([]byte, error) {
	if evts == nil {
		evts = []models.CalendarEvent{}
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return json.MarshalIndent(Snapshot{Events: evts, Reminders: reminders}, "", "  ")
}

// ParseJSON reads a Snapshot. Both top-level keys must be present.
func ParseJSON(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.ErrImportFormatInvalid, err)
	}
	for _, key := range []string{"eventos", "lembretes"} {
		if _, ok := raw[key]; !ok {
			return Snapshot{}, apperrors.WithMessage(apperrors.ErrImportFormatInvalid, fmt.Sprintf("missing %q section", key))
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw["eventos"], &snap.Events); err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.ErrImportFormatInvalid, err)
	}
	if err := json.Unmarshal(raw["lembretes"], &snap.Reminders); err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.ErrImportFormatInvalid, err)
	}
	return snap, nil
}

// ExportICS renders the owner's calendar.
func (s *Sync) ExportICS() string { return ExportICS(s.Events()) }

// ExportJSON renders the owner's calendar and reminders.
func (s *Sync) ExportJSON() ([]byte, error) { return ExportJSON(s.Events(), s.Reminders()) }

// Import carries fired flags from a previously exported snapshot so those
// reminders are not fired again. It returns the number of reminders marked.
func (s *Sync) Import(ctx context.Context, snap Snapshot) (int, error) {
	marked := 0
	for _, r := range snap.Reminders {
		if !r.Fired || r.ID == "" {
			continue
		}
		if _, err := s.store.Claim(ctx, s.ownerID, r.ID); err != nil {
			return marked, err
		}
		s.markFired(r.ID)
		marked++
	}
	return marked, nil
}
