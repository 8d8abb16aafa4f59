package notify

import (
	"context"
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

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Notification) error { return errors.New("down") }

func TestInbox(t *testing.T) {
	inbox := NewInbox(2)
	ctx := context.Background()

	_ = inbox.Notify(ctx, Notification{OwnerID: "u1", Title: "first"})
	_ = inbox.Notify(ctx, Notification{OwnerID: "u1", Title: "second"})
	_ = inbox.Notify(ctx, Notification{OwnerID: "u1", Title: "third"})
	_ = inbox.Notify(ctx, Notification{OwnerID: "u2", Title: "other"})

	got := inbox.List("u1")
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Title != "third" || got[1].Title != "second" {
		t.Errorf("expected newest first, got %q, %q", got[0].Title, got[1].Title)
	}
	if got[0].At.IsZero() {
		t.Error("expected timestamp to be set")
	}

	inbox.Clear("u1")
	if len(inbox.List("u1")) != 0 {
		t.Error("expected empty inbox after clear")
	}
	if len(inbox.List("u2")) != 1 {
		t.Error("clearing one owner should not affect another")
	}
}

func TestAMQPNotifier(t *testing.T) {
	var gotKey string
	var gotMsg *amqp.Message
	pub := &mockPublisher{publishFn: func(_ context.Context, key string, msg *amqp.Message) error {
		gotKey, gotMsg = key, msg
		return nil
	}}

	err := NewAMQPNotifier(pub).Notify(context.Background(), Notification{OwnerID: "u1", Kind: KindReminder, Title: "Due soon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "notification.invoice_reminder" {
		t.Errorf("unexpected routing key %q", gotKey)
	}
	if gotMsg.OwnerID != "u1" {
		t.Errorf("unexpected owner %q", gotMsg.OwnerID)
	}
}

func TestMulti(t *testing.T) {
	inbox := NewInbox(10)
	m := Multi{NewLogNotifier(), failingNotifier{}, inbox}

	err := m.Notify(context.Background(), Notification{OwnerID: "u1", Level: LevelError, Title: "x"})
	if err == nil {
		t.Error("expected joined error from the failing notifier")
	}
	if len(inbox.List("u1")) != 1 {
		t.Error("later notifiers should still receive the notification")
	}
}
