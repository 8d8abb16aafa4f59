// Package gateway is the remote store boundary: owner-scoped collections of
// incomes, expenses, clients and invoices with CRUD and filtered reads.
package gateway

import (
	"context"

	apperrors "finora/internal/errors"
)

// Record is the constraint every stored entity satisfies through its
// embedded models.Base and models.Owned.
type Record[T any] interface {
	*T
	GetID() string
	SetID(id string)
	GetOwnerID() string
	SetOwnerID(id string)
}

// Collection is one owner-scoped collection in the store. The owner is taken
// from the context; every method fails with AUTHENTICATION_REQUIRED when none
// is present.
type Collection[T any] interface {
	// Name identifies the collection ("incomes", "invoices", ...).
	Name() string
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	// ListBy returns records whose column equals value, e.g. invoices by
	// source_income_id.
	ListBy(ctx context.Context, column string, value interface{}) ([]T, error)
	Insert(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	// UpdateIf overwrites a record only while its stored column still equals
	// value, and fails with PRECONDITION_FAILED otherwise.
	UpdateIf(ctx context.Context, entity T, column string, value interface{}) (T, error)
	Delete(ctx context.Context, id string) error
}

type ownerKey struct{}

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFrom extracts the owner id, or AUTHENTICATION_REQUIRED.
func OwnerFrom(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", apperrors.ErrAuthenticationRequired
	}
	id, ok := ctx.Value(ownerKey{}).(string)
	if !ok || id == "" {
		return "", apperrors.ErrAuthenticationRequired
	}
	return id, nil
}
