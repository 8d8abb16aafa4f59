// Package notify delivers user-facing notifications: failed writes,
// reminders and derived-record failures. Delivery is best effort.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"finora/internal/amqp"
	"finora/internal/logger"
)

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kinds of notification the engine emits.
const (
	KindMutationFailed = "mutation_failed"
	KindReminder       = "invoice_reminder"
	KindDerivedFailed  = "derived_invoice_failed"
)

// Notification is a single message for one owner.
type Notification struct {
	OwnerID string    `json:"owner_id"`
	Kind    string    `json:"kind"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Ref     string    `json:"ref,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a notifier backed by the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Named("notify")}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	fields := []interface{}{"owner_id", n.OwnerID, "kind", n.Kind, "ref", n.Ref, "message", n.Message}
	switch n.Level {
	case LevelError:
		l.log.Errorw(n.Title, fields...)
	case LevelWarning:
		l.log.Warnw(n.Title, fields...)
	default:
		l.log.Infow(n.Title, fields...)
	}
	return nil
}

// Inbox keeps the most recent notifications per owner in memory so the API
// can list them.
type Inbox struct {
	mu    sync.Mutex
	limit int
	items map[string][]Notification
}

// NewInbox creates an inbox retaining up to limit notifications per owner.
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 50
	}
	return &Inbox{limit: limit, items: make(map[string][]Notification)}
}

// Notify implements Notifier.
func (b *Inbox) Notify(_ context.Context, n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := append(b.items[n.OwnerID], n)
	if len(list) > b.limit {
		list = list[len(list)-b.limit:]
	}
	b.items[n.OwnerID] = list
	return nil
}

// List returns the owner's notifications, newest first.
func (b *Inbox) List(ownerID string) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.items[ownerID]
	out := make([]Notification, len(src))
	for i, n := range src {
		out[len(src)-1-i] = n
	}
	return out
}

// Clear drops the owner's notifications.
func (b *Inbox) Clear(ownerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, ownerID)
}

// AMQPNotifier publishes notifications under "notification.<kind>".
type AMQPNotifier struct {
	pub amqp.Publisher
}

// NewAMQPNotifier creates a notifier publishing through pub.
func NewAMQPNotifier(pub amqp.Publisher) *AMQPNotifier {
	return &AMQPNotifier{pub: pub}
}

// Notify implements Notifier.
func (a *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	msg, err := amqp.NewMessage("notification."+n.Kind, n.OwnerID, n)
	if err != nil {
		return err
	}
	return a.pub.Publish(ctx, msg.Type, msg)
}

// Multi fans a notification out to several notifiers and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	var errs []error
	for _, target := range m {
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
