// Package mutation applies writes optimistically to a local projection of a
// collection and reconciles the projection with the store once the write
// settles.
package mutation

import (
	"context"
	"time"
)

// Op is the kind of write.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Guard makes an update conditional on the stored value of one column.
type Guard struct {
	Column string
	Value  interface{}
}

// Intent describes one write. Entity is used by create and update, ID by
// delete. Guard, when set, applies to updates only.
type Intent[T any] struct {
	Op     Op
	Entity T
	ID     string
	Guard  *Guard
}

// Create builds a create intent.
func Create[T any](entity T) Intent[T] { return Intent[T]{Op: OpCreate, Entity: entity} }

// Update builds an update intent. The target id is taken from the entity.
func Update[T any](entity T) Intent[T] { return Intent[T]{Op: OpUpdate, Entity: entity} }

// UpdateIf builds an update that only lands while the stored column still
// equals value. A mismatch settles with PRECONDITION_FAILED and the
// projection is reloaded from the store.
func UpdateIf[T any](entity T, column string, value interface{}) Intent[T] {
	return Intent[T]{Op: OpUpdate, Entity: entity, Guard: &Guard{Column: column, Value: value}}
}

// Delete builds a delete intent.
func Delete[T any](id string) Intent[T] { return Intent[T]{Op: OpDelete, ID: id} }

// Outcome is the settled result of a submitted intent.
type Outcome[T any] struct {
	Collection string
	OwnerID    string
	Op         Op
	// Entity is the canonical record after create/update and the removed
	// record after delete.
	Entity T
	// TempID is the placeholder id the optimistic create used.
	TempID    string
	Err       error
	SettledAt time.Time
}

// OK reports whether the write was confirmed by the store.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Pending is a handle on a submitted intent.
type Pending[T any] struct {
	optimistic T
	done       chan struct{}
	outcome    Outcome[T]
}

func newPending[T any](optimistic T) *Pending[T] {
	return &Pending[T]{optimistic: optimistic, done: make(chan struct{})}
}

func (p *Pending[T]) settle(o Outcome[T]) {
	p.outcome = o
	close(p.done)
}

// Optimistic returns the entity as it was applied to the projection.
func (p *Pending[T]) Optimistic() T { return p.optimistic }

// Done is closed once the intent has settled and dependents were notified.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the intent settles or ctx is done. The returned error is
// ctx's error; a failed write is reported through Outcome.Err.
func (p *Pending[T]) Wait(ctx context.Context) (Outcome[T], error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome[T]{}, ctx.Err()
	}
}
