// Package backup exports an owner's collections to a JSON file and restores
// them atomically.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/gateway"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/validator"
)

// FormatVersion is written to every backup.
const FormatVersion = "1.0"

// Metadata describes a backup file.
type Metadata struct {
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	TotalRecords int       `json:"totalRecords"`
}

// File is the backup document.
type File struct {
	Incomes  []models.Income  `json:"incomes"`
	Expenses []models.Expense `json:"expenses"`
	Clients  []models.Client  `json:"clients"`
	Invoices []models.Invoice `json:"invoices"`
	Metadata Metadata         `json:"metadata"`
}

// Total counts the records in the file.
func (f File) Total() int {
	return len(f.Incomes) + len(f.Expenses) + len(f.Clients) + len(f.Invoices)
}

// Export reads the four collections concurrently.
func Export(ctx context.Context, gw gateway.Gateways) (File, error) {
	var f File
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		f.Incomes, err = gw.Incomes.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		f.Expenses, err = gw.Expenses.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		f.Clients, err = gw.Clients.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		f.Invoices, err = gw.Invoices.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return File{}, err
	}

	f.Metadata = Metadata{
		Timestamp:    time.Now().UTC(),
		Version:      FormatVersion,
		TotalRecords: f.Total(),
	}
	return f, nil
}

// Marshal renders f as indented JSON.
func Marshal(f File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

var requiredKeys = []string{"incomes", "expenses", "clients", "invoices", "metadata"}

// Parse reads and validates a backup document. Missing sections, malformed
// records and invoices pointing at unknown clients fail with
// IMPORT_FORMAT_INVALID.
func Parse(data []byte) (File, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return File{}, apperrors.Wrap(apperrors.ErrImportFormatInvalid, err)
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return File{}, apperrors.WithMessage(apperrors.ErrImportFormatInvalid, fmt.Sprintf("missing %q section", key))
		}
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, apperrors.Wrap(apperrors.ErrImportFormatInvalid, err)
	}
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) validate() error {
	invalid := func(section string, i int, err error) error {
		e := apperrors.WithMessage(apperrors.ErrImportFormatInvalid, fmt.Sprintf("%s[%d]: %s", section, i, err.Error()))
		e.Internal = err
		return e
	}

	for i := range f.Incomes {
		if err := validator.Struct(&f.Incomes[i]); err != nil {
			return invalid("incomes", i, err)
		}
	}
	for i := range f.Expenses {
		if err := validator.Struct(&f.Expenses[i]); err != nil {
			return invalid("expenses", i, err)
		}
	}
	clients := make(map[string]bool, len(f.Clients))
	for i := range f.Clients {
		if err := validator.Struct(&f.Clients[i]); err != nil {
			return invalid("clients", i, err)
		}
		clients[f.Clients[i].ID] = true
	}
	for i := range f.Invoices {
		inv := &f.Invoices[i]
		if err := validator.Struct(inv); err != nil {
			return invalid("invoices", i, err)
		}
		if err := inv.CheckPaymentInvariant(); err != nil {
			return invalid("invoices", i, err)
		}
		if !clients[inv.ClientID] {
			return invalid("invoices", i, fmt.Errorf("unknown client %s", inv.ClientID))
		}
	}
	return nil
}

// Restore replaces the owner's collections with the file's contents in one
// transaction. Record ids are kept; any failure leaves stored data untouched.
func Restore(ctx context.Context, db *gorm.DB, f File) error {
	owner, err := gateway.OwnerFrom(ctx)
	if err != nil {
		return err
	}

	for i := range f.Incomes {
		f.Incomes[i].OwnerID = owner
	}
	for i := range f.Expenses {
		f.Expenses[i].OwnerID = owner
	}
	for i := range f.Clients {
		f.Clients[i].OwnerID = owner
	}
	for i := range f.Invoices {
		f.Invoices[i].OwnerID = owner
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Invoice{}, &models.Income{}, &models.Expense{}, &models.Client{}} {
			if err := tx.Where("owner_id = ?", owner).Delete(model).Error; err != nil {
				return err
			}
		}
		if len(f.Clients) > 0 {
			if err := tx.Create(&f.Clients).Error; err != nil {
				return err
			}
		}
		if len(f.Incomes) > 0 {
			if err := tx.Create(&f.Incomes).Error; err != nil {
				return err
			}
		}
		if len(f.Expenses) > 0 {
			if err := tx.Create(&f.Expenses).Error; err != nil {
				return err
			}
		}
		if len(f.Invoices) > 0 {
			if err := tx.Create(&f.Invoices).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteWriteFailed, err)
	}

	logger.Get().Infow("Backup restored",
		"owner_id", owner,
		"records", f.Total(),
		"version", f.Metadata.Version,
	)
	return nil
}
