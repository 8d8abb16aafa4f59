package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"finora/internal/amqp"
)

type mockPublisher struct {
	publishFn func(ctx context.Context, routingKey string, msg *amqp.Message) error
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, msg *amqp.Message) error {
	return m.publishFn(ctx, routingKey, msg)
}

type sinkFunc func(ctx context.Context, e Event) error

func (f sinkFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

func TestBus_DispatchOrder(t *testing.T) {
	var seen []string
	sink := sinkFunc(func(_ context.Context, e Event) error {
		seen = append(seen, "sink:"+string(e.Type))
		return errors.New("broker down")
	})
	bus := NewBus(sink)
	bus.Subscribe(IncomeCreated, func(context.Context, Event) { seen = append(seen, "first") })
	bus.Subscribe(IncomeCreated, func(context.Context, Event) { seen = append(seen, "second") })
	bus.Subscribe(InvoiceOverdue, func(context.Context, Event) { seen = append(seen, "wrong") })

	bus.Publish(context.Background(), Event{Type: IncomeCreated, OwnerID: "u1"})

	want := []string{"first", "second", "sink:income.created"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestAMQPSink(t *testing.T) {
	var key string
	var payload map[string]interface{}
	pub := &mockPublisher{publishFn: func(_ context.Context, k string, msg *amqp.Message) error {
		key = k
		return json.Unmarshal(msg.Payload, &payload)
	}}

	err := NewAMQPSink(pub).Publish(context.Background(), Event{
		Type:       CollectionInvalidated,
		OwnerID:    "u1",
		Collection: "invoices",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "collection.invalidated" {
		t.Errorf("unexpected routing key %q", key)
	}
	if payload["collection"] != "invoices" {
		t.Errorf("unexpected payload %v", payload)
	}
}
