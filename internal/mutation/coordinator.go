package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "finora/internal/errors"
	"finora/internal/gateway"
	"finora/internal/logger"
	"finora/internal/notify"
	"finora/internal/uuid"
	"finora/internal/validator"
)

// Listener observes settled intents. Listeners run on the settling goroutine
// after the projection has been reconciled.
type Listener[T any] func(ctx context.Context, o Outcome[T])

// Options configures a Coordinator.
type Options[T any] struct {
	// Label names one record in user-facing messages ("income", "invoice").
	Label string
	// Notifier receives one notification per failed write.
	Notifier notify.Notifier
	// Check runs after struct validation for create and update payloads.
	Check func(T) error
}

// Coordinator owns the local projection of one collection. Writes are
// applied to the projection immediately and sent to the gateway in the
// background; a failed write restores the projection captured at submit.
type Coordinator[T any, P gateway.Record[T]] struct {
	gw   gateway.Collection[T]
	opts Options[T]
	log  *zap.SugaredLogger

	mu            sync.Mutex
	items         []T
	loaded        bool
	stale         bool
	overlapped    bool
	inflight      int
	gen           uint64
	refreshCancel context.CancelFunc
	listeners     []Listener[T]
	onChange      []func()

	wg sync.WaitGroup
}

// New creates a coordinator over gw with an empty projection.
func New[T any, P gateway.Record[T]](gw gateway.Collection[T], opts Options[T]) *Coordinator[T, P] {
	if opts.Label == "" {
		opts.Label = gw.Name()
	}
	return &Coordinator[T, P]{
		gw:    gw,
		opts:  opts,
		log:   logger.Named("mutation").With("collection", gw.Name()),
		items: []T{},
	}
}

// Name returns the collection name.
func (c *Coordinator[T, P]) Name() string { return c.gw.Name() }

// Subscribe registers a settle listener.
func (c *Coordinator[T, P]) Subscribe(l Listener[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// OnChange registers an observer called after every projection change.
// Observers read the current state through Items.
func (c *Coordinator[T, P]) OnChange(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, f)
}

// Items returns a copy of the projection.
func (c *Coordinator[T, P]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Find returns the projected record with the given id.
func (c *Coordinator[T, P]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Loaded reports whether the projection has been filled from the store.
func (c *Coordinator[T, P]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Stale reports whether a confirmed write is waiting for a refresh.
func (c *Coordinator[T, P]) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// InFlight returns the number of unsettled writes.
func (c *Coordinator[T, P]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// Refresh replaces the projection with the store's contents. A refresh that
// is superseded by a submit, or that completes while writes are in flight,
// is discarded and the collection stays stale.
func (c *Coordinator[T, P]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.inflight > 0 {
		c.stale = true
		c.mu.Unlock()
		return nil
	}
	if c.refreshCancel != nil {
		c.refreshCancel()
	}
	c.gen++
	gen := c.gen
	rctx, cancel := context.WithCancel(ctx)
	c.refreshCancel = cancel
	c.mu.Unlock()
	defer cancel()

	items, err := c.gw.List(rctx)

	c.mu.Lock()
	if gen != c.gen || c.inflight > 0 {
		c.stale = true
		c.mu.Unlock()
		c.log.Debugw("Discarded superseded refresh")
		return nil
	}
	c.refreshCancel = nil
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = items
	c.loaded = true
	c.stale = false
	c.mu.Unlock()

	c.emitChange()
	return nil
}

// Submit validates the intent, applies it to the projection and sends it to
// the gateway in the background. Caller cancellation does not abort the
// gateway call.
func (c *Coordinator[T, P]) Submit(ctx context.Context, in Intent[T]) (*Pending[T], error) {
	owner, err := gateway.OwnerFrom(ctx)
	if err != nil {
		return nil, err
	}

	switch in.Op {
	case OpCreate, OpUpdate:
		if err := c.validate(in.Entity); err != nil {
			return nil, err
		}
	case OpDelete:
		if in.ID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, "id is required")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, fmt.Sprintf("unknown operation %q", in.Op))
	}

	entity := in.Entity
	p := P(&entity)

	c.mu.Lock()
	idx := -1
	switch in.Op {
	case OpUpdate:
		idx = c.indexOf(p.GetID())
	case OpDelete:
		idx = c.indexOf(in.ID)
	}
	if in.Op != OpCreate && idx < 0 {
		c.mu.Unlock()
		id := in.ID
		if in.Op == OpUpdate {
			id = p.GetID()
		}
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", c.opts.Label, id))
	}

	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	c.gen++
	if c.inflight > 0 {
		c.overlapped = true
	}
	snapshot := slices.Clone(c.items)

	var tempID string
	switch in.Op {
	case OpCreate:
		tempID = uuid.NewTemp()
		p.SetID(tempID)
		p.SetOwnerID(owner)
		c.items = append(c.items, entity)
	case OpUpdate:
		p.SetOwnerID(owner)
		c.items[idx] = entity
	case OpDelete:
		entity = c.items[idx]
		c.items = slices.Delete(c.items, idx, idx+1)
	}
	c.inflight++
	c.mu.Unlock()

	c.emitChange()

	pending := newPending(entity)
	c.wg.Add(1)
	go c.settle(context.WithoutCancel(ctx), owner, in.Op, in.Guard, entity, tempID, snapshot, pending)
	return pending, nil
}

// Drain waits for every submitted intent to settle.
func (c *Coordinator[T, P]) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator[T, P]) settle(ctx context.Context, owner string, op Op, guard *Guard, entity T, tempID string, snapshot []T, pending *Pending[T]) {
	defer c.wg.Done()

	var canonical T
	var err error
	switch op {
	case OpCreate:
		canonical, err = c.gw.Insert(ctx, entity)
	case OpUpdate:
		if guard != nil {
			canonical, err = c.gw.UpdateIf(ctx, entity, guard.Column, guard.Value)
		} else {
			canonical, err = c.gw.Update(ctx, entity)
		}
	case OpDelete:
		err = c.gw.Delete(ctx, P(&entity).GetID())
		canonical = entity
	}

	out := Outcome[T]{
		Collection: c.gw.Name(),
		OwnerID:    owner,
		Op:         op,
		Entity:     canonical,
		TempID:     tempID,
		SettledAt:  time.Now(),
	}

	// The store moved on without us: nothing to report, but the projection
	// must be reloaded.
	skipped := errors.Is(err, apperrors.ErrPreconditionFailed)

	c.mu.Lock()
	c.inflight--
	if err != nil {
		c.items = snapshot
		out.Entity = entity
		if skipped {
			out.Err = err
			c.stale = true
		} else {
			out.Err = apperrors.Wrap(apperrors.ErrRemoteWriteFailed, err)
		}
	} else {
		c.reconcile(op, tempID, canonical)
		c.stale = true
	}
	refresh := c.inflight == 0 && (c.stale || c.overlapped)
	if c.inflight == 0 {
		c.overlapped = false
	}
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	c.emitChange()

	if skipped {
		c.log.Infow("Conditional write skipped, reloading",
			"op", op,
			"owner_id", owner,
			"reason", err,
		)
	} else if err != nil {
		c.log.Warnw("Write failed, projection restored",
			"op", op,
			"owner_id", owner,
			"error", err,
		)
		c.notifyFailure(ctx, out)
	}
	if refresh {
		if rerr := c.Refresh(ctx); rerr != nil {
			c.log.Errorw("Refresh after settle failed", "error", rerr)
		}
	}

	for _, l := range listeners {
		l(ctx, out)
	}
	pending.settle(out)
}

func (c *Coordinator[T, P]) reconcile(op Op, tempID string, canonical T) {
	id := P(&canonical).GetID()
	switch op {
	case OpCreate:
		if i := c.indexOf(tempID); i >= 0 {
			c.items[i] = canonical
			return
		}
		if c.indexOf(id) < 0 {
			c.items = append(c.items, canonical)
		}
	case OpUpdate:
		if i := c.indexOf(id); i >= 0 {
			c.items[i] = canonical
			return
		}
		c.items = append(c.items, canonical)
	case OpDelete:
		if i := c.indexOf(id); i >= 0 {
			c.items = slices.Delete(c.items, i, i+1)
		}
	}
}

func (c *Coordinator[T, P]) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.items {
		if P(&c.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (c *Coordinator[T, P]) validate(entity T) error {
	if err := validator.Struct(P(&entity)); err != nil {
		return err
	}
	if c.opts.Check != nil {
		if err := c.opts.Check(entity); err != nil {
			return apperrors.WithMessage(apperrors.ErrValidationFailed, err.Error())
		}
	}
	return nil
}

func (c *Coordinator[T, P]) emitChange() {
	c.mu.Lock()
	observers := slices.Clone(c.onChange)
	c.mu.Unlock()
	for _, f := range observers {
		f()
	}
}

func (c *Coordinator[T, P]) notifyFailure(ctx context.Context, out Outcome[T]) {
	if c.opts.Notifier == nil {
		return
	}
	n := notify.Notification{
		OwnerID: out.OwnerID,
		Kind:    notify.KindMutationFailed,
		Level:   notify.LevelError,
		Title:   fmt.Sprintf("Could not %s %s", out.Op, c.opts.Label),
		Message: "The change was not saved and has been reverted.",
		Ref:     P(&out.Entity).GetID(),
		At:      out.SettledAt,
	}
	if err := c.opts.Notifier.Notify(ctx, n); err != nil {
		c.log.Warnw("Failed to deliver notification", "error", err)
	}
}
