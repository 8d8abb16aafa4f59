package gateway

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/uuid"
)

// GormCollection implements Collection over a GORM table. Every query is
// scoped to the owner carried by the context.
type GormCollection[T any, P Record[T]] struct {
	db      *gorm.DB
	name    string
	filters map[string]bool
}

// NewGormCollection creates a collection backed by db. filterColumns lists
// the columns ListBy accepts.
func NewGormCollection[T any, P Record[T]](db *gorm.DB, name string, filterColumns ...string) *GormCollection[T, P] {
	filters := make(map[string]bool, len(filterColumns)+1)
	filters["id"] = true
	for _, col := range filterColumns {
		filters[col] = true
	}
	return &GormCollection[T, P]{db: db, name: name, filters: filters}
}

// Gateways bundles the four collections the engine works with.
type Gateways struct {
	Incomes  Collection[models.Income]
	Expenses Collection[models.Expense]
	Clients  Collection[models.Client]
	Invoices Collection[models.Invoice]
}

// NewGormGateways wires all collections to the same database.
func NewGormGateways(db *gorm.DB) Gateways {
	return Gateways{
		Incomes:  NewGormCollection[models.Income](db, "incomes", "client_id", "status"),
		Expenses: NewGormCollection[models.Expense](db, "expenses", "category"),
		Clients:  NewGormCollection[models.Client](db, "clients", "email"),
		Invoices: NewGormCollection[models.Invoice](db, "invoices", "client_id", "status", "source_income_id"),
	}
}

// Name implements Collection.
func (c *GormCollection[T, P]) Name() string { return c.name }

func (c *GormCollection[T, P]) scoped(ctx context.Context) (*gorm.DB, string, error) {
	owner, err := OwnerFrom(ctx)
	if err != nil {
		return nil, "", err
	}
	return c.db.WithContext(ctx).Where("owner_id = ?", owner), owner, nil
}

// List returns every record of the owner in insertion order.
func (c *GormCollection[T, P]) List(ctx context.Context) ([]T, error) {
	q, _, err := c.scoped(ctx)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := q.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns a record by id.
func (c *GormCollection[T, P]) Get(ctx context.Context, id string) (T, error) {
	var item T
	q, _, err := c.scoped(ctx)
	if err != nil {
		return item, err
	}
	if err := q.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", c.name, id))
		}
		return item, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return item, nil
}

// ListBy returns records whose column equals value.
func (c *GormCollection[T, P]) ListBy(ctx context.Context, column string, value interface{}) ([]T, error) {
	if !c.filters[column] {
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, fmt.Sprintf("cannot filter %s by %q", c.name, column))
	}
	q, _, err := c.scoped(ctx)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := q.Where(column+" = ?", value).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return items, nil
}

// Insert stores a new record and returns the canonical row. Temporary ids
// are discarded in favour of a store-assigned id.
func (c *GormCollection[T, P]) Insert(ctx context.Context, entity T) (T, error) {
	owner, err := OwnerFrom(ctx)
	if err != nil {
		return entity, err
	}
	p := P(&entity)
	p.SetOwnerID(owner)
	if uuid.IsTemp(p.GetID()) {
		p.SetID("")
	}
	if err := c.db.WithContext(ctx).Create(p).Error; err != nil {
		return entity, apperrors.Wrap(apperrors.ErrRemoteWriteFailed, err)
	}
	return c.Get(ctx, p.GetID())
}

// Update overwrites a record. Identity and ownership columns are never
// changed. Concurrent edits resolve last-write-wins.
func (c *GormCollection[T, P]) Update(ctx context.Context, entity T) (T, error) {
	return c.update(ctx, entity, "", nil)
}

// UpdateIf overwrites a record only while column still holds value.
func (c *GormCollection[T, P]) UpdateIf(ctx context.Context, entity T, column string, value interface{}) (T, error) {
	if !c.filters[column] {
		return entity, apperrors.WithMessage(apperrors.ErrValidationFailed, fmt.Sprintf("cannot guard %s by %q", c.name, column))
	}
	return c.update(ctx, entity, column, value)
}

func (c *GormCollection[T, P]) update(ctx context.Context, entity T, column string, value interface{}) (T, error) {
	q, owner, err := c.scoped(ctx)
	if err != nil {
		return entity, err
	}
	p := P(&entity)
	p.SetOwnerID(owner)
	q = q.Model(p).Where("id = ?", p.GetID())
	if column != "" {
		q = q.Where(column+" = ?", value)
	}
	res := q.Select("*").Omit("id", "owner_id", "created_at").Updates(p)
	if res.Error != nil {
		return entity, apperrors.Wrap(apperrors.ErrRemoteWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		if column != "" {
			if _, err := c.Get(ctx, p.GetID()); err != nil {
				return entity, err
			}
			return entity, apperrors.WithMessage(apperrors.ErrPreconditionFailed,
				fmt.Sprintf("%s %s no longer has %s %v", c.name, p.GetID(), column, value))
		}
		return entity, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", c.name, p.GetID()))
	}
	return c.Get(ctx, p.GetID())
}

// Delete removes a record.
func (c *GormCollection[T, P]) Delete(ctx context.Context, id string) error {
	q, _, err := c.scoped(ctx)
	if err != nil {
		return err
	}
	res := q.Where("id = ?", id).Delete(P(new(T)))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrRemoteWriteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", c.name, id))
	}
	return nil
}
