// Package events is the in-process domain event bus. Handlers run
// synchronously in subscription order; sinks forward every event to external
// transports.
package events

import (
	"context"
	"sync"
	"time"

	"finora/internal/amqp"
	"finora/internal/logger"
)

// Type names a domain event.
type Type string

const (
	// CollectionInvalidated fires after a collection's write settled.
	CollectionInvalidated Type = "collection.invalidated"
	// IncomeCreated fires once per confirmed income create. Payload is the
	// canonical models.Income.
	IncomeCreated Type = "income.created"
	// InvoiceDerived fires when the propagator confirmed an invoice for a
	// pending income. Payload is the models.Invoice.
	InvoiceDerived Type = "invoice.derived"
	// InvoiceOverdue fires for each invoice the sweep moved to overdue.
	InvoiceOverdue Type = "invoice.overdue"
	// ReminderFired fires once per reminder. Payload is the models.Reminder.
	ReminderFired Type = "reminder.fired"
)

// Event is a single domain event for one owner.
type Event struct {
	Type       Type        `json:"type"`
	OwnerID    string      `json:"owner_id"`
	Collection string      `json:"collection,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	At         time.Time   `json:"at"`
}

// Handler reacts to an event.
type Handler func(ctx context.Context, e Event)

// Sink forwards events outside the process.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Bus dispatches events to handlers and sinks.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	sinks    []Sink
}

// NewBus creates a bus forwarding to sinks.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{handlers: make(map[Type][]Handler), sinks: sinks}
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers e to every handler of its type and then to the sinks.
// Sink failures are logged and never reach the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	for _, s := range sinks {
		if err := s.Publish(ctx, e); err != nil {
			logger.Named("events").Warnw("Failed to forward event",
				"type", e.Type,
				"owner_id", e.OwnerID,
				"error", err,
			)
		}
	}
}

// AMQPSink publishes events with their type as routing key.
type AMQPSink struct {
	pub amqp.Publisher
}

// NewAMQPSink creates a sink publishing through pub.
func NewAMQPSink(pub amqp.Publisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

// Publish implements Sink.
func (s *AMQPSink) Publish(ctx context.Context, e Event) error {
	msg, err := amqp.NewMessage(string(e.Type), e.OwnerID, e)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, string(e.Type), msg)
}
