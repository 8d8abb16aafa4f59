// Package session binds the engine to one authenticated owner: the four
// collection coordinators, the event bus, the derived views and the periodic
// sweeps. Sweeps run strictly between Start and Stop.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finora/internal/calendar"
	"finora/internal/classify"
	apperrors "finora/internal/errors"
	"finora/internal/events"
	"finora/internal/gateway"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/mutation"
	"finora/internal/notify"
	"finora/internal/propagator"
	"finora/internal/scheduler"
	"finora/internal/stats"
)

// Coordinator aliases for the four collections.
type (
	IncomeCoordinator  = mutation.Coordinator[models.Income, *models.Income]
	ExpenseCoordinator = mutation.Coordinator[models.Expense, *models.Expense]
	ClientCoordinator  = mutation.Coordinator[models.Client, *models.Client]
	InvoiceCoordinator = mutation.Coordinator[models.Invoice, *models.Invoice]
)

// Deps are the shared collaborators every session is built from.
type Deps struct {
	Gateways         gateway.Gateways
	Notifier         notify.Notifier
	Sinks            []events.Sink
	FiredStore       calendar.FiredStore
	Calendar         calendar.Options
	OverdueInterval  time.Duration
	ReminderInterval time.Duration
	MaxKeywords      int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is one owner's running engine.
type Session struct {
	OwnerID string

	Incomes    *IncomeCoordinator
	Expenses   *ExpenseCoordinator
	Clients    *ClientCoordinator
	Invoices   *InvoiceCoordinator
	Bus        *events.Bus
	Propagator *propagator.Propagator
	Calendar   *calendar.Sync
	Classifier *classify.Engine

	ctx       context.Context
	now       func() time.Time
	scheduler *scheduler.Scheduler
	log       *zap.SugaredLogger

	mu          sync.Mutex
	started     bool
	dashboard   *models.DashboardStats
	dashVersion uint64
}

// New wires a session for ownerID. Nothing is loaded until Start.
func New(ownerID string, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier()
	}
	if deps.FiredStore == nil {
		deps.FiredStore = calendar.NewMemoryFiredStore()
	}
	if deps.MaxKeywords <= 0 {
		deps.MaxKeywords = 50
	}
	if deps.OverdueInterval <= 0 {
		deps.OverdueInterval = time.Hour
	}
	if deps.ReminderInterval <= 0 {
		deps.ReminderInterval = time.Minute
	}

	s := &Session{
		OwnerID: ownerID,
		ctx:     gateway.WithOwner(context.Background(), ownerID),
		now:     deps.Now,
		log:     logger.Named("session").With("owner_id", ownerID),
		Bus:     events.NewBus(deps.Sinks...),
	}

	s.Incomes = mutation.New[models.Income](deps.Gateways.Incomes, mutation.Options[models.Income]{
		Label: "income", Notifier: deps.Notifier,
	})
	s.Expenses = mutation.New[models.Expense](deps.Gateways.Expenses, mutation.Options[models.Expense]{
		Label: "expense", Notifier: deps.Notifier,
	})
	s.Clients = mutation.New[models.Client](deps.Gateways.Clients, mutation.Options[models.Client]{
		Label: "client", Notifier: deps.Notifier,
	})
	s.Invoices = mutation.New[models.Invoice](deps.Gateways.Invoices, mutation.Options[models.Invoice]{
		Label: "invoice", Notifier: deps.Notifier, Check: models.Invoice.CheckPaymentInvariant,
	})

	s.Propagator = propagator.New(s.Invoices, deps.Gateways.Invoices, s.Bus)
	s.Propagator.Attach()
	s.Calendar = calendar.NewSync(ownerID, deps.Calendar, deps.FiredStore, deps.Notifier, s.Bus)
	s.Classifier = classify.NewEngine(classify.DefaultCategories(), deps.MaxKeywords)

	s.Incomes.Subscribe(func(ctx context.Context, o mutation.Outcome[models.Income]) {
		s.invalidated(ctx, o.Collection, o.OK())
		if o.OK() && o.Op == mutation.OpCreate {
			s.Bus.Publish(ctx, events.Event{Type: events.IncomeCreated, OwnerID: o.OwnerID, Collection: o.Collection, Payload: o.Entity})
		}
	})
	s.Expenses.Subscribe(func(ctx context.Context, o mutation.Outcome[models.Expense]) {
		s.invalidated(ctx, o.Collection, o.OK())
	})
	s.Clients.Subscribe(func(ctx context.Context, o mutation.Outcome[models.Client]) {
		s.invalidated(ctx, o.Collection, o.OK())
	})
	s.Invoices.Subscribe(func(ctx context.Context, o mutation.Outcome[models.Invoice]) {
		s.invalidated(ctx, o.Collection, o.OK())
	})

	s.Incomes.OnChange(s.invalidateDashboard)
	s.Expenses.OnChange(s.invalidateDashboard)
	s.Clients.OnChange(s.invalidateDashboard)
	s.Clients.OnChange(s.rebuildCalendar)
	s.Invoices.OnChange(s.invalidateDashboard)
	s.Invoices.OnChange(s.rebuildCalendar)

	s.scheduler = scheduler.New(
		scheduler.Job{Name: "overdue-sweep", Interval: deps.OverdueInterval, Run: s.Propagator.OverdueSweep},
		scheduler.Job{Name: "reminder-sweep", Interval: deps.ReminderInterval, Run: s.Calendar.Sweep},
	).WithClock(deps.Now)

	return s
}

// Context returns a context authenticated as the session owner.
func (s *Session) Context() context.Context { return s.ctx }

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.now() }

// Start loads the four collections concurrently, derives the calendar and
// starts the sweeps.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return apperrors.ErrSessionAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	if err := s.scheduler.Start(s.ctx); err != nil {
		return err
	}
	s.log.Infow("Session started",
		"incomes", len(s.Incomes.Items()),
		"expenses", len(s.Expenses.Items()),
		"clients", len(s.Clients.Items()),
		"invoices", len(s.Invoices.Items()),
	)
	return nil
}

// Reload refreshes every collection from the store.
func (s *Session) Reload(ctx context.Context) error {
	ctx = gateway.WithOwner(ctx, s.OwnerID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Incomes.Refresh(gctx) })
	g.Go(func() error { return s.Expenses.Refresh(gctx) })
	g.Go(func() error { return s.Clients.Refresh(gctx) })
	g.Go(func() error { return s.Invoices.Refresh(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	s.rebuildCalendar()
	return nil
}

// Stop ends the sweeps and waits for in-flight writes to settle.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.scheduler.Stop()
	pending := s.pendingWrites()
	err := s.Settle(ctx)
	s.log.Infow("Session stopped", "settled_writes", pending)
	return err
}

// pendingWrites counts the writes submitted but not yet settled.
func (s *Session) pendingWrites() int {
	return s.Incomes.InFlight() + s.Expenses.InFlight() + s.Clients.InFlight() + s.Invoices.InFlight()
}

// Running reports whether the session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Settle waits until every submitted write, including derived invoices, has
// settled.
func (s *Session) Settle(ctx context.Context) error {
	steps := []func(context.Context) error{
		s.Incomes.Drain,
		s.Expenses.Drain,
		s.Clients.Drain,
		s.Propagator.Drain,
		s.Invoices.Drain,
		s.Propagator.Drain,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Dashboard returns the current stats, recomputing after any change.
func (s *Session) Dashboard() models.DashboardStats {
	now := s.now()
	s.mu.Lock()
	cached, version := s.dashboard, s.dashVersion
	s.mu.Unlock()
	if cached != nil && models.SameMonth(cached.PeriodStart, now) {
		return *cached
	}

	d := stats.Aggregate(s.Incomes.Items(), s.Expenses.Items(), s.Clients.Items(), s.Invoices.Items(), now)
	s.mu.Lock()
	if s.dashVersion == version {
		s.dashboard = &d
	}
	s.mu.Unlock()
	return d
}

func (s *Session) invalidateDashboard() {
	s.mu.Lock()
	s.dashboard = nil
	s.dashVersion++
	s.mu.Unlock()
}

func (s *Session) rebuildCalendar() {
	s.Calendar.Rebuild(s.ctx, s.Invoices.Items(), s.Clients.Items())
}

func (s *Session) invalidated(ctx context.Context, collection string, ok bool) {
	if !ok {
		return
	}
	s.Bus.Publish(ctx, events.Event{Type: events.CollectionInvalidated, OwnerID: s.OwnerID, Collection: collection})
}
