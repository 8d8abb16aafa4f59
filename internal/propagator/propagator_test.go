package propagator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finora/internal/events"
	"finora/internal/gateway"
	"finora/internal/models"
	"finora/internal/mutation"
	"finora/internal/testutil"
)

type fixture struct {
	ctx      context.Context
	owner    string
	client   *models.Client
	gw       gateway.Gateways
	invoices *InvoiceCoordinator
	bus      *events.Bus
	prop     *Propagator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	user := testutil.CreateTestUser(t, db)
	f := &fixture{
		ctx:    testutil.OwnerContext(user.ID),
		owner:  user.ID,
		client: testutil.CreateTestClient(t, db, user.ID),
		gw:     gateway.NewGormGateways(db),
		bus:    events.NewBus(),
	}
	f.invoices = mutation.New[models.Invoice](f.gw.Invoices, mutation.Options[models.Invoice]{Label: "invoice"})
	testutil.AssertNoError(t, f.invoices.Refresh(f.ctx))
	f.prop = New(f.invoices, f.gw.Invoices, f.bus)
	return f
}

func (f *fixture) pendingIncome(t *testing.T, amount int64, date string) models.Income {
	t.Helper()
	inc, err := f.gw.Incomes.Insert(f.ctx, models.Income{
		Amount:      decimal.NewFromInt(amount),
		Description: "Website redesign",
		Date:        models.MustDate(date),
		Status:      models.IncomeStatusPending,
		ClientID:    &f.client.ID,
	})
	testutil.AssertNoError(t, err)
	return inc
}

func drain(t *testing.T, f *fixture) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	testutil.AssertNoError(t, f.prop.Drain(ctx))
	testutil.AssertNoError(t, f.invoices.Drain(ctx))
}

func TestHandleIncomeCreated_DerivesInvoice(t *testing.T) {
	f := setup(t)
	var derived atomic.Int32
	f.bus.Subscribe(events.InvoiceDerived, func(context.Context, events.Event) { derived.Add(1) })

	inc := f.pendingIncome(t, 1000, "2024-03-10")
	pending, err := f.prop.HandleIncomeCreated(f.ctx, inc)
	testutil.AssertNoError(t, err)
	if pending == nil {
		t.Fatal("expected a derived invoice to be submitted")
	}
	drain(t, f)

	stored, err := f.gw.Invoices.ListBy(f.ctx, "source_income_id", inc.ID)
	testutil.AssertNoError(t, err)
	if len(stored) != 1 {
		t.Fatalf("expected one derived invoice, got %d", len(stored))
	}
	inv := stored[0]
	if !inv.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected amount 1000, got %s", inv.Amount)
	}
	if inv.ClientID != f.client.ID {
		t.Errorf("expected client %s, got %s", f.client.ID, inv.ClientID)
	}
	if !models.DateOf(inv.DueDate).Equal(models.MustDate("2024-03-10")) {
		t.Errorf("expected due date 2024-03-10, got %s", inv.DueDate)
	}
	if inv.Status != models.InvoiceStatusPending || inv.PaymentDate != nil {
		t.Errorf("expected unpaid pending invoice, got %s", inv.Status)
	}
	if derived.Load() != 1 {
		t.Errorf("expected one InvoiceDerived event, got %d", derived.Load())
	}
}

func TestHandleIncomeCreated_SkipsIneligible(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		mutate func(inc *models.Income)
	}{
		{"paid", func(inc *models.Income) { inc.Status = models.IncomeStatusPaid }},
		{"no_status", func(inc *models.Income) { inc.Status = models.IncomeStatusNone }},
		{"no_client", func(inc *models.Income) { inc.ClientID = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := f.pendingIncome(t, 50, "2024-03-10")
			tt.mutate(&inc)
			pending, err := f.prop.HandleIncomeCreated(f.ctx, inc)
			testutil.AssertNoError(t, err)
			if pending != nil {
				t.Error("expected no invoice for an ineligible income")
			}
		})
	}
	drain(t, f)
	if n := len(f.invoices.Items()); n != 0 {
		t.Errorf("expected no invoices, got %d", n)
	}
}

func TestHandleIncomeCreated_Idempotent(t *testing.T) {
	f := setup(t)
	inc := f.pendingIncome(t, 1000, "2024-03-10")

	t.Run("concurrent_triggers", func(t *testing.T) {
		var submitted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if p, err := f.prop.HandleIncomeCreated(f.ctx, inc); err == nil && p != nil {
					submitted.Add(1)
				}
			}()
		}
		wg.Wait()
		drain(t, f)
		if submitted.Load() != 1 {
			t.Errorf("expected exactly one submit, got %d", submitted.Load())
		}
	})

	t.Run("repeat_after_settle", func(t *testing.T) {
		p, err := f.prop.HandleIncomeCreated(f.ctx, inc)
		testutil.AssertNoError(t, err)
		if p != nil {
			t.Error("expected no second invoice")
		}
	})

	t.Run("fresh_session_checks_store", func(t *testing.T) {
		invoices := mutation.New[models.Invoice](f.gw.Invoices, mutation.Options[models.Invoice]{})
		fresh := New(invoices, f.gw.Invoices, f.bus)
		p, err := fresh.HandleIncomeCreated(f.ctx, inc)
		testutil.AssertNoError(t, err)
		if p != nil {
			t.Error("store lookup should prevent a duplicate invoice")
		}
	})

	stored, err := f.gw.Invoices.ListBy(f.ctx, "source_income_id", inc.ID)
	testutil.AssertNoError(t, err)
	if len(stored) != 1 {
		t.Errorf("expected one invoice in the store, got %d", len(stored))
	}
}

// failingInserts rejects every insert.
type failingInserts struct {
	gateway.Collection[models.Invoice]
}

func (failingInserts) Insert(context.Context, models.Invoice) (models.Invoice, error) {
	return models.Invoice{}, errors.New("connection reset")
}

func TestHandleIncomeCreated_FailureKeepsIncome(t *testing.T) {
	f := setup(t)
	broken := mutation.New[models.Invoice](failingInserts{f.gw.Invoices}, mutation.Options[models.Invoice]{})
	prop := New(broken, f.gw.Invoices, f.bus)

	inc := f.pendingIncome(t, 1000, "2024-03-10")
	pending, err := prop.HandleIncomeCreated(f.ctx, inc)
	testutil.AssertNoError(t, err)

	out, err := pending.Wait(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertAppError(t, out.Err, "REMOTE_WRITE_FAILED")
	testutil.AssertNoError(t, prop.Drain(context.Background()))

	if _, err := f.gw.Incomes.Get(f.ctx, inc.ID); err != nil {
		t.Errorf("income should survive a failed derived invoice: %v", err)
	}
	if len(broken.Items()) != 0 {
		t.Error("failed invoice should be rolled back from the projection")
	}

	again, err := prop.HandleIncomeCreated(f.ctx, inc)
	testutil.AssertNoError(t, err)
	if again == nil {
		t.Error("a failed derivation should release its claim")
	}
	_, _ = again.Wait(context.Background())
	testutil.AssertNoError(t, prop.Drain(context.Background()))
}

func TestAttach_ReactsToIncomeCreated(t *testing.T) {
	f := setup(t)
	f.prop.Attach()

	inc := f.pendingIncome(t, 250, "2024-04-01")
	f.bus.Publish(f.ctx, events.Event{Type: events.IncomeCreated, OwnerID: f.owner, Payload: inc})
	f.bus.Publish(f.ctx, events.Event{Type: events.IncomeCreated, OwnerID: f.owner, Payload: "garbage"})
	drain(t, f)

	if n := len(f.invoices.Items()); n != 1 {
		t.Errorf("expected one invoice from the event, got %d", n)
	}
}

func TestOverdueSweep(t *testing.T) {
	f := setup(t)
	var overdueEvents atomic.Int32
	f.bus.Subscribe(events.InvoiceOverdue, func(context.Context, events.Event) { overdueEvents.Add(1) })

	insert := func(due string, status models.InvoiceStatus) models.Invoice {
		inv := models.Invoice{
			ClientID: f.client.ID,
			Amount:   decimal.NewFromInt(100),
			DueDate:  models.MustDate(due),
			Status:   status,
		}
		if status == models.InvoiceStatusPaid {
			paidAt := models.MustDate("2024-03-01")
			inv.PaymentDate = &paidAt
		}
		saved, err := f.gw.Invoices.Insert(f.ctx, inv)
		testutil.AssertNoError(t, err)
		return saved
	}

	yesterday := insert("2024-03-09", models.InvoiceStatusPending)
	today := insert("2024-03-10", models.InvoiceStatusPending)
	paid := insert("2024-03-01", models.InvoiceStatusPaid)
	cancelled := insert("2024-03-01", models.InvoiceStatusCancelled)
	testutil.AssertNoError(t, f.invoices.Refresh(f.ctx))

	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	n, err := f.prop.OverdueSweep(f.ctx, now)
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Errorf("expected 1 invoice swept, got %d", n)
	}
	drain(t, f)

	want := map[string]models.InvoiceStatus{
		yesterday.ID: models.InvoiceStatusOverdue,
		today.ID:     models.InvoiceStatusPending,
		paid.ID:      models.InvoiceStatusPaid,
		cancelled.ID: models.InvoiceStatusCancelled,
	}
	for id, status := range want {
		got, err := f.gw.Invoices.Get(f.ctx, id)
		testutil.AssertNoError(t, err)
		if got.Status != status {
			t.Errorf("invoice due %s: expected %s, got %s", got.DueDate.Format(models.DateLayout), status, got.Status)
		}
	}
	if overdueEvents.Load() != 1 {
		t.Errorf("expected one overdue event, got %d", overdueEvents.Load())
	}

	again, err := f.prop.OverdueSweep(f.ctx, now)
	testutil.AssertNoError(t, err)
	if again != 0 {
		t.Errorf("second sweep should find nothing, got %d", again)
	}
}

// heldInvoices delays conditional updates until release is closed.
type heldInvoices struct {
	gateway.Collection[models.Invoice]
	entered chan struct{}
	release chan struct{}
}

func (h *heldInvoices) UpdateIf(ctx context.Context, inv models.Invoice, column string, value interface{}) (models.Invoice, error) {
	close(h.entered)
	<-h.release
	return h.Collection.UpdateIf(ctx, inv, column, value)
}

func TestOverdueSweep_NeverOverwritesPayment(t *testing.T) {
	f := setup(t)
	held := &heldInvoices{Collection: f.gw.Invoices, entered: make(chan struct{}), release: make(chan struct{})}
	invoices := mutation.New[models.Invoice](gateway.Collection[models.Invoice](held), mutation.Options[models.Invoice]{Label: "invoice"})
	prop := New(invoices, held, f.bus)

	var overdueEvents atomic.Int32
	f.bus.Subscribe(events.InvoiceOverdue, func(context.Context, events.Event) { overdueEvents.Add(1) })

	saved, err := f.gw.Invoices.Insert(f.ctx, models.Invoice{
		ClientID: f.client.ID,
		Amount:   decimal.NewFromInt(250),
		DueDate:  models.MustDate("2024-03-01"),
		Status:   models.InvoiceStatusPending,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, invoices.Refresh(f.ctx))

	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	n, err := prop.OverdueSweep(f.ctx, now)
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Fatalf("expected 1 invoice swept, got %d", n)
	}
	<-held.entered

	// The owner records the payment while the sweep's write is held.
	inv, ok := invoices.Find(saved.ID)
	if !ok {
		t.Fatal("invoice missing from projection")
	}
	testutil.AssertNoError(t, inv.SetStatus(models.InvoiceStatusPaid, now))
	paid, err := invoices.Submit(f.ctx, mutation.Update(inv))
	testutil.AssertNoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := paid.Wait(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, out.Err)

	close(held.release)
	testutil.AssertNoError(t, prop.Drain(ctx))
	testutil.AssertNoError(t, invoices.Drain(ctx))

	stored, err := f.gw.Invoices.Get(f.ctx, saved.ID)
	testutil.AssertNoError(t, err)
	if stored.Status != models.InvoiceStatusPaid || stored.PaymentDate == nil {
		t.Errorf("expected the payment to survive the sweep, got status=%s payment_date=%v", stored.Status, stored.PaymentDate)
	}
	projected, _ := invoices.Find(saved.ID)
	if projected.Status != models.InvoiceStatusPaid {
		t.Errorf("projection should show paid after reload, got %s", projected.Status)
	}
	if overdueEvents.Load() != 0 {
		t.Errorf("skipped sweep must not publish an overdue event, got %d", overdueEvents.Load())
	}
}

func TestOverdueSweep_WaitsForLoad(t *testing.T) {
	f := setup(t)
	_, err := f.gw.Invoices.Insert(f.ctx, models.Invoice{
		ClientID: f.client.ID,
		Amount:   decimal.NewFromInt(80),
		DueDate:  models.MustDate("2024-03-01"),
		Status:   models.InvoiceStatusPending,
	})
	testutil.AssertNoError(t, err)

	invoices := mutation.New[models.Invoice](f.gw.Invoices, mutation.Options[models.Invoice]{Label: "invoice"})
	prop := New(invoices, f.gw.Invoices, f.bus)
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	n, err := prop.OverdueSweep(f.ctx, now)
	testutil.AssertNoError(t, err)
	if n != 0 {
		t.Errorf("expected no updates before the projection loads, got %d", n)
	}

	testutil.AssertNoError(t, invoices.Refresh(f.ctx))
	n, err = prop.OverdueSweep(f.ctx, now)
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Errorf("expected 1 update once loaded, got %d", n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	testutil.AssertNoError(t, prop.Drain(ctx))
	testutil.AssertNoError(t, invoices.Drain(ctx))
}
