// Package calendar derives due-date events and reminders from invoices,
// fires reminders once, and exports the calendar as iCalendar or JSON.
package calendar

import (
	"fmt"
	"time"

	"finora/internal/models"
)

// Colors keyed by invoice status.
var statusColors = map[models.InvoiceStatus]string{
	models.InvoiceStatusPending:   "#f59e0b",
	models.InvoiceStatusPaid:      "#10b981",
	models.InvoiceStatusOverdue:   "#ef4444",
	models.InvoiceStatusCancelled: "#6b7280",
}

// Options controls reminder placement.
type Options struct {
	LeadDays     int
	ReminderHour int
	Location     *time.Location
}

// DefaultOptions places reminders three days before the due date at 09:00
// UTC.
func DefaultOptions() Options {
	return Options{LeadDays: 3, ReminderHour: 9, Location: time.UTC}
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// PriorityOf ranks an invoice by status.
func PriorityOf(status models.InvoiceStatus) models.Priority {
	switch status {
	case models.InvoiceStatusOverdue:
		return models.PriorityHigh
	case models.InvoiceStatusPending:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// ColorOf returns the display color for a status.
func ColorOf(status models.InvoiceStatus) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return statusColors[models.InvoiceStatusCancelled]
}

// ReminderID identifies the reminder for an invoice due on a given date, so
// moving the due date produces a new reminder.
func ReminderID(invoiceID string, due time.Time) string {
	return fmt.Sprintf("reminder-%s-%s", invoiceID, models.DateOf(due).Format("20060102"))
}

// Derive recomputes the full event and reminder set. Every invoice yields a
// due event and a reminder event; only open invoices get a Reminder.
func Derive(invoices []models.Invoice, clients []models.Client, opts Options) ([]models.CalendarEvent, []models.Reminder) {
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	events := make([]models.CalendarEvent, 0, 2*len(invoices))
	reminders := make([]models.Reminder, 0, len(invoices))

	for _, inv := range invoices {
		client := names[inv.ClientID]
		if client == "" {
			client = "Cliente"
		}
		due := models.DateOf(inv.DueDate)
		remindOn := due.AddDate(0, 0, -opts.LeadDays)
		priority := PriorityOf(inv.Status)
		color := ColorOf(inv.Status)
		amount := inv.Amount.StringFixed(2)

		events = append(events,
			models.CalendarEvent{
				ID:          "due-" + inv.ID,
				Title:       fmt.Sprintf("Vencimento: %s", client),
				Description: fmt.Sprintf("%s - R$ %s", inv.Description, amount),
				Date:        due,
				Kind:        models.EventKindDue,
				Category:    inv.Status,
				Color:       color,
				Priority:    priority,
				InvoiceID:   inv.ID,
			},
			models.CalendarEvent{
				ID:          "reminder-" + inv.ID,
				Title:       fmt.Sprintf("Lembrete: %s vence em %d dias", client, opts.LeadDays),
				Description: fmt.Sprintf("%s - R$ %s", inv.Description, amount),
				Date:        remindOn,
				Kind:        models.EventKindReminder,
				Category:    inv.Status,
				Color:       color,
				Priority:    priority,
				InvoiceID:   inv.ID,
			},
		)

		if !inv.IsOpen() {
			continue
		}
		reminders = append(reminders, models.Reminder{
			ID:        ReminderID(inv.ID, due),
			InvoiceID: inv.ID,
			Title:     fmt.Sprintf("Fatura de %s vence em %s", client, due.Format("02/01/2006")),
			Message:   fmt.Sprintf("%s - R$ %s", inv.Description, amount),
			ScheduledAt: time.Date(remindOn.Year(), remindOn.Month(), remindOn.Day(),
				opts.ReminderHour, 0, 0, 0, opts.location()),
		})
	}
	return events, reminders
}
