package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"finora/internal/events"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/notify"
)

// Sync holds one owner's derived calendar and fires its reminders.
type Sync struct {
	ownerID  string
	opts     Options
	store    FiredStore
	notifier notify.Notifier
	bus      *events.Bus
	log      *zap.SugaredLogger

	mu        sync.Mutex
	events    []models.CalendarEvent
	reminders []models.Reminder
}

// NewSync creates an empty calendar for ownerID. bus may be nil.
func NewSync(ownerID string, opts Options, store FiredStore, notifier notify.Notifier, bus *events.Bus) *Sync {
	return &Sync{
		ownerID:   ownerID,
		opts:      opts,
		store:     store,
		notifier:  notifier,
		bus:       bus,
		log:       logger.Named("calendar").With("owner_id", ownerID),
		events:    []models.CalendarEvent{},
		reminders: []models.Reminder{},
	}
}

// Rebuild replaces the calendar with one derived from invoices. Reminders
// already fired keep their fired flag.
func (s *Sync) Rebuild(ctx context.Context, invoices []models.Invoice, clients []models.Client) {
	evts, rems := Derive(invoices, clients, s.opts)

	s.mu.Lock()
	fired := make(map[string]bool, len(s.reminders))
	for _, r := range s.reminders {
		if r.Fired {
			fired[r.ID] = true
		}
	}
	s.mu.Unlock()

	for i := range rems {
		if fired[rems[i].ID] {
			rems[i].Fired = true
			continue
		}
		ok, err := s.store.Fired(ctx, s.ownerID, rems[i].ID)
		if err != nil {
			s.log.Warnw("Could not read fired marker", "reminder_id", rems[i].ID, "error", err)
			continue
		}
		rems[i].Fired = ok
	}

	s.mu.Lock()
	s.events = evts
	s.reminders = rems
	s.mu.Unlock()
}

// Events returns the derived events ordered by date.
func (s *Sync) Events() []models.CalendarEvent {
	s.mu.Lock()
	out := slices.Clone(s.events)
	s.mu.Unlock()
	slices.SortStableFunc(out, func(a, b models.CalendarEvent) int { return a.Date.Compare(b.Date) })
	return out
}

// Reminders returns the current reminders.
func (s *Sync) Reminders() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reminders)
}

// Between returns events dated within [from, to].
func (s *Sync) Between(from, to time.Time) []models.CalendarEvent {
	from, to = models.DateOf(from), models.DateOf(to)
	var out []models.CalendarEvent
	for _, e := range s.Events() {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out
}

// Sweep fires every unfired reminder scheduled at or before now. Each
// reminder is claimed in the store before its notification is sent, so it
// fires at most once even across restarts. It returns the number fired.
func (s *Sync) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	var due []models.Reminder
	for _, r := range s.reminders {
		if !r.Fired && !r.ScheduledAt.After(now) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	var errs []error
	fired := 0
	for _, r := range due {
		claimed, err := s.store.Claim(ctx, s.ownerID, r.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim %s: %w", r.ID, err))
			continue
		}
		s.markFired(r.ID)
		if !claimed {
			continue
		}
		fired++
		r.Fired = true

		if err := s.notifier.Notify(ctx, notify.Notification{
			OwnerID: s.ownerID,
			Kind:    notify.KindReminder,
			Level:   notify.LevelInfo,
			Title:   r.Title,
			Message: r.Message,
			Ref:     r.InvoiceID,
			At:      now,
		}); err != nil {
			s.log.Warnw("Reminder notification failed", "reminder_id", r.ID, "error", err)
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.Event{Type: events.ReminderFired, OwnerID: s.ownerID, Payload: r})
		}
	}
	if fired > 0 {
		s.log.Infow("Reminders fired", "count", fired)
	}
	return fired, errors.Join(errs...)
}

func (s *Sync) markFired(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			s.reminders[i].Fired = true
		}
	}
}
