// Package propagator derives follow-up writes from confirmed ones: an
// invoice for every pending income with a client, and the overdue status for
// invoices past their due date.
package propagator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"finora/internal/events"
	"finora/internal/gateway"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/mutation"
)

// InvoiceCoordinator is the invoice collection's mutation coordinator.
type InvoiceCoordinator = mutation.Coordinator[models.Invoice, *models.Invoice]

// Propagator reacts to IncomeCreated events and runs the overdue sweep.
type Propagator struct {
	invoices *InvoiceCoordinator
	store    gateway.Collection[models.Invoice]
	bus      *events.Bus
	log      *zap.SugaredLogger

	claims sync.Map
	wg     sync.WaitGroup
}

// New creates a propagator submitting through invoices. store is used for
// the idempotency lookup by source income.
func New(invoices *InvoiceCoordinator, store gateway.Collection[models.Invoice], bus *events.Bus) *Propagator {
	return &Propagator{
		invoices: invoices,
		store:    store,
		bus:      bus,
		log:      logger.Named("propagator"),
	}
}

// Attach subscribes the propagator to the bus.
func (p *Propagator) Attach() {
	p.bus.Subscribe(events.IncomeCreated, func(ctx context.Context, e events.Event) {
		inc, ok := e.Payload.(models.Income)
		if !ok {
			p.log.Warnw("Ignoring income event with unexpected payload", "payload_type", fmt.Sprintf("%T", e.Payload))
			return
		}
		if _, err := p.HandleIncomeCreated(ctx, inc); err != nil {
			p.log.Errorw("Failed to derive invoice",
				"income_id", inc.ID,
				"owner_id", e.OwnerID,
				"error", err,
			)
		}
	})
}

// HandleIncomeCreated submits an invoice for a pending income with a client.
// It returns nil when the income does not qualify or an invoice for it
// already exists or is being created.
func (p *Propagator) HandleIncomeCreated(ctx context.Context, inc models.Income) (*mutation.Pending[models.Invoice], error) {
	if !inc.IsPending() || inc.ClientID == nil || *inc.ClientID == "" {
		return nil, nil
	}

	if _, loaded := p.claims.LoadOrStore(inc.ID, struct{}{}); loaded {
		p.log.Debugw("Invoice derivation already in progress", "income_id", inc.ID)
		return nil, nil
	}

	exists, err := p.hasDerivedInvoice(ctx, inc.ID)
	if err != nil {
		p.claims.Delete(inc.ID)
		return nil, err
	}
	if exists {
		return nil, nil
	}

	sourceID := inc.ID
	invoice := models.Invoice{
		ClientID:       *inc.ClientID,
		Description:    inc.Description,
		Amount:         inc.Amount,
		DueDate:        inc.Date,
		Status:         models.InvoiceStatusPending,
		SourceIncomeID: &sourceID,
	}

	pending, err := p.invoices.Submit(ctx, mutation.Create(invoice))
	if err != nil {
		p.claims.Delete(inc.ID)
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		out, _ := pending.Wait(bg)
		if out.Err != nil {
			p.claims.Delete(inc.ID)
			p.log.Errorw("Derived invoice was not saved",
				"income_id", inc.ID,
				"owner_id", out.OwnerID,
				"error", out.Err,
			)
			return
		}
		p.log.Infow("Derived invoice created",
			"income_id", inc.ID,
			"invoice_id", out.Entity.ID,
		)
		p.bus.Publish(bg, events.Event{
			Type:       events.InvoiceDerived,
			OwnerID:    out.OwnerID,
			Collection: out.Collection,
			Payload:    out.Entity,
		})
	}()

	return pending, nil
}

func (p *Propagator) hasDerivedInvoice(ctx context.Context, incomeID string) (bool, error) {
	for _, inv := range p.invoices.Items() {
		if inv.SourceIncomeID != nil && *inv.SourceIncomeID == incomeID {
			return true, nil
		}
	}
	found, err := p.store.ListBy(ctx, "source_income_id", incomeID)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// OverdueSweep moves every pending invoice whose due date is strictly before
// now's calendar date to overdue. It returns the number of updates submitted
// and does nothing until the invoice projection has loaded.
// Each update only lands while the stored invoice is still pending, so a
// payment recorded meanwhile is never overwritten.
func (p *Propagator) OverdueSweep(ctx context.Context, now time.Time) (int, error) {
	if !p.invoices.Loaded() {
		p.log.Debugw("Overdue sweep skipped, invoices not loaded")
		return 0, nil
	}
	var errs []error
	count := 0
	bg := context.WithoutCancel(ctx)
	for _, inv := range p.invoices.Items() {
		if !inv.IsOverdueOn(now) {
			continue
		}
		updated := inv
		updated.MarkOverdue()

		pending, err := p.invoices.Submit(ctx, mutation.UpdateIf(updated, "status", string(models.InvoiceStatusPending)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invoice %s: %w", inv.ID, err))
			continue
		}
		count++

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			out, _ := pending.Wait(bg)
			if out.Err != nil {
				return
			}
			p.bus.Publish(bg, events.Event{
				Type:       events.InvoiceOverdue,
				OwnerID:    out.OwnerID,
				Collection: out.Collection,
				Payload:    out.Entity,
			})
		}()
	}
	if count > 0 {
		p.log.Infow("Overdue sweep marked invoices", "count", count)
	}
	return count, errors.Join(errs...)
}

// Drain waits for background settle watchers.
func (p *Propagator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
