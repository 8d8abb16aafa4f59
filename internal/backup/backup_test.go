package backup

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finora/internal/gateway"
	"finora/internal/models"
	"finora/internal/testutil"
)

func TestExportParseRestore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	owner := testutil.CreateTestUser(t, db)
	ctx := testutil.OwnerContext(owner.ID)
	client := testutil.CreateTestClient(t, db, owner.ID)
	testutil.CreateTestIncome(t, db, owner.ID, 300, models.MustDate("2024-03-01"))
	testutil.CreateTestExpense(t, db, owner.ID, 50, models.MustDate("2024-03-02"))
	testutil.CreateTestExpense(t, db, owner.ID, 20, models.MustDate("2024-03-03"))
	testutil.CreateTestInvoice(t, db, owner.ID, client.ID, 1000, models.MustDate("2024-03-10"))

	gw := gateway.NewGormGateways(db)
	f, err := Export(ctx, gw)
	testutil.AssertNoError(t, err)
	if f.Metadata.TotalRecords != 5 || f.Metadata.Version != FormatVersion {
		t.Fatalf("unexpected metadata: %+v", f.Metadata)
	}

	data, err := Marshal(f)
	testutil.AssertNoError(t, err)
	parsed, err := Parse(data)
	testutil.AssertNoError(t, err)
	if parsed.Total() != 5 {
		t.Fatalf("expected 5 records after parse, got %d", parsed.Total())
	}

	t.Run("restore_replaces_collections", func(t *testing.T) {
		parsed.Expenses = parsed.Expenses[:1]
		testutil.AssertNoError(t, Restore(ctx, db, parsed))

		expenses, err := gw.Expenses.List(ctx)
		testutil.AssertNoError(t, err)
		if len(expenses) != 1 || expenses[0].ID != parsed.Expenses[0].ID {
			t.Errorf("expected the single restored expense, got %+v", expenses)
		}
		invoices, err := gw.Invoices.List(ctx)
		testutil.AssertNoError(t, err)
		if len(invoices) != 1 || !invoices[0].Amount.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("invoice not restored: %+v", invoices)
		}
	})

	t.Run("failed_restore_is_atomic", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		otherCtx := testutil.OwnerContext(other.ID)
		mine := testutil.CreateTestClient(t, db, other.ID)

		// Same ids as the first owner's rows: the insert collides and the
		// whole restore must roll back.
		err := Restore(otherCtx, db, parsed)
		testutil.AssertAppError(t, err, "REMOTE_WRITE_FAILED")

		clients, err := gw.Clients.List(otherCtx)
		testutil.AssertNoError(t, err)
		if len(clients) != 1 || clients[0].ID != mine.ID {
			t.Errorf("existing data must survive a failed restore, got %+v", clients)
		}
	})

	t.Run("requires_owner", func(t *testing.T) {
		testutil.AssertAppError(t, Restore(context.Background(), db, parsed), "AUTHENTICATION_REQUIRED")
	})
}

func TestParse_Invalid(t *testing.T) {
	valid := `"incomes": [], "expenses": [], "clients": [], "invoices": [], "metadata": {"version": "1.0"}`

	tests := []struct {
		name    string
		data    string
		message string
	}{
		{"not_json", `[1, 2`, ""},
		{"missing_invoices", `{"incomes": [], "expenses": [], "clients": [], "metadata": {}}`, "invoices"},
		{"missing_metadata", `{"incomes": [], "expenses": [], "clients": [], "invoices": []}`, "metadata"},
		{"invalid_record", `{` + strings.Replace(valid, `"incomes": []`, `"incomes": [{"amount": "10"}]`, 1) + `}`, "incomes[0]"},
		{"unknown_client", `{` + strings.Replace(valid, `"invoices": []`,
			`"invoices": [{"client_id": "ghost", "amount": "1", "due_date": "2024-03-10T00:00:00Z", "status": "pending"}]`, 1) + `}`, "unknown client"},
		{"paid_without_date", `{` + strings.Replace(strings.Replace(valid, `"clients": []`, `"clients": [{"id": "c1", "name": "A"}]`, 1), `"invoices": []`,
			`"invoices": [{"client_id": "c1", "amount": "1", "due_date": "2024-03-10T00:00:00Z", "status": "paid"}]`, 1) + `}`, "payment date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			testutil.AssertAppError(t, err, "IMPORT_FORMAT_INVALID")
			if tt.message != "" && !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected %q in %q", tt.message, err.Error())
			}
		})
	}

	_, err := Parse([]byte(`{` + valid + `}`))
	testutil.AssertNoError(t, err)
}

func TestBuildReport(t *testing.T) {
	inc := func(amount int64, date string) models.Income {
		return models.Income{Amount: decimal.NewFromInt(amount), Description: "x", Date: models.MustDate(date)}
	}
	f := File{
		Incomes:  []models.Income{inc(100, "2024-03-01"), inc(200, "2024-03-31"), inc(999, "2024-04-01")},
		Expenses: []models.Expense{{Amount: decimal.NewFromInt(30), Date: models.MustDate("2024-03-15")}},
		Invoices: []models.Invoice{
			{Amount: decimal.NewFromInt(500), DueDate: models.MustDate("2024-03-20"), Status: models.InvoiceStatusPending},
			{Amount: decimal.NewFromInt(700), DueDate: models.MustDate("2024-03-21"), Status: models.InvoiceStatusPaid},
		},
		Clients: []models.Client{{Name: "A"}},
	}

	r := BuildReport(f, models.MustDate("2024-03-01"), models.MustDate("2024-03-31"), AllSections())

	if len(r.Incomes) != 2 || len(r.Expenses) != 1 || len(r.Invoices) != 2 || len(r.Clients) != 1 {
		t.Errorf("unexpected filtered counts: %d incomes, %d expenses, %d invoices, %d clients",
			len(r.Incomes), len(r.Expenses), len(r.Invoices), len(r.Clients))
	}
	if !r.Summary.TotalIncome.Equal(decimal.NewFromInt(300)) || !r.Summary.Balance.Equal(decimal.NewFromInt(270)) {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
	if !r.Summary.InvoicedOpen.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected 500 open, got %s", r.Summary.InvoicedOpen)
	}

	only := BuildReport(f, models.MustDate("2024-03-01"), models.MustDate("2024-03-31"), Sections{Invoices: true})
	if only.Summary != nil || only.Incomes != nil || len(only.Invoices) != 2 {
		t.Errorf("unselected sections should be omitted: %+v", only)
	}
}
