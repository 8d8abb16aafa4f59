package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finora/internal/logger"
	"finora/internal/models"
)

const sampleBackup = `{
  "incomes": [
    {"id": "i1", "amount": "1000", "description": "Consultoria", "category": "Freelance", "date": "2024-03-05T00:00:00Z", "status": "pending"}
  ],
  "expenses": [
    {"id": "e1", "amount": "42.50", "description": "Uber", "category": "Transporte", "date": "2024-03-06T00:00:00Z"},
    {"id": "e2", "amount": "10", "description": "Padaria", "category": "Alimentação", "date": "2024-02-01T00:00:00Z"}
  ],
  "clients": [
    {"id": "c1", "name": "ACME"}
  ],
  "invoices": [
    {"id": "v1", "client_id": "c1", "amount": "1000", "description": "Site", "due_date": "2024-03-20T00:00:00Z", "status": "pending"}
  ],
  "metadata": {"timestamp": "2024-03-15T10:00:00Z", "version": "1.0", "totalRecords": 5}
}`

func writeBackup(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write backup: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger.Init("test")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "Uber", "para", "o", "aeroporto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Matched  bool `json:"matched"`
		Category struct {
			ID string `json:"id"`
		} `json:"category"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad output %q: %v", out, err)
	}
	if !got.Matched || got.Category.ID != "transporte" {
		t.Errorf("expected transporte, got %+v", got)
	}

	if _, err := execute(t, "classify", "--direction", "sideways", "Uber"); err == nil {
		t.Error("expected an error for an invalid direction")
	}
	if _, err := execute(t, "classify"); err == nil {
		t.Error("expected an error without a description")
	}
}

func TestClassifySuggest(t *testing.T) {
	out, err := execute(t, "classify", "--direction", "income", "--suggest", "Consultoria do projeto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []struct {
		Category struct {
			ID string `json:"id"`
		} `json:"category"`
		Score int `json:"score"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad output %q: %v", out, err)
	}
	if len(got) == 0 || got[0].Category.ID != "freelance" {
		t.Errorf("expected freelance first, got %+v", got)
	}
}

func TestStatsCommand(t *testing.T) {
	path := writeBackup(t, sampleBackup)

	out, err := execute(t, "stats", "--backup", path, "--date", "2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got models.DashboardStats
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad output: %v", err)
	}
	if got.TotalIncome.String() != "1000" {
		t.Errorf("expected income 1000, got %s", got.TotalIncome)
	}
	if got.TotalExpense.String() != "42.5" {
		t.Errorf("expected expense 42.5, got %s", got.TotalExpense)
	}
	if got.ClientCount != 1 {
		t.Errorf("expected 1 client, got %d", got.ClientCount)
	}
}

func TestStatsCommand_Errors(t *testing.T) {
	if _, err := execute(t, "stats"); err == nil || !strings.Contains(err.Error(), "--backup") {
		t.Errorf("expected missing --backup error, got %v", err)
	}
	bad := writeBackup(t, `{"incomes": []}`)
	if _, err := execute(t, "stats", "--backup", bad); err == nil {
		t.Error("expected an error for an incomplete backup")
	}
	path := writeBackup(t, sampleBackup)
	if _, err := execute(t, "stats", "--backup", path, "--date", "15/03/2024"); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestReportCommand(t *testing.T) {
	path := writeBackup(t, sampleBackup)

	out, err := execute(t, "report", "--backup", path, "--from", "2024-03-01", "--to", "2024-03-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Expenses []models.Expense `json:"expenses"`
		Invoices []models.Invoice `json:"invoices"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad output: %v", err)
	}
	if len(got.Expenses) != 1 || got.Expenses[0].ID != "e1" {
		t.Errorf("expected only the March expense, got %+v", got.Expenses)
	}
	if len(got.Invoices) != 1 {
		t.Errorf("expected 1 invoice, got %d", len(got.Invoices))
	}

	if _, err := execute(t, "report", "--backup", path, "--from", "2024-03-31", "--to", "2024-03-01"); err == nil {
		t.Error("expected an error for an inverted range")
	}
}

func TestCalendarCommand(t *testing.T) {
	path := writeBackup(t, sampleBackup)

	t.Run("ics", func(t *testing.T) {
		out, err := execute(t, "calendar", "--backup", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"BEGIN:VCALENDAR", "UID:due-v1", "DTSTART:20240320", "DTSTART:20240317", "END:VCALENDAR"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in output", want)
			}
		}
	})

	t.Run("json_with_lead_days", func(t *testing.T) {
		out, err := execute(t, "calendar", "--backup", path, "--format", "json", "--lead-days", "5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got struct {
			Events    []models.CalendarEvent `json:"eventos"`
			Reminders []models.Reminder      `json:"lembretes"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("bad output: %v", err)
		}
		if len(got.Events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got.Events))
		}
		for _, e := range got.Events {
			if e.Kind == models.EventKindReminder && e.Date.Format(models.DateLayout) != "2024-03-15" {
				t.Errorf("expected reminder on 2024-03-15, got %s", e.Date.Format(models.DateLayout))
			}
		}
	})

	t.Run("invalid_flags", func(t *testing.T) {
		if _, err := execute(t, "calendar", "--backup", path, "--format", "pdf"); err == nil {
			t.Error("expected an error for an unknown format")
		}
		if _, err := execute(t, "calendar", "--backup", path, "--reminder-hour", "24"); err == nil {
			t.Error("expected an error for an out-of-range hour")
		}
		if _, err := execute(t, "calendar", "--backup", path, "--timezone", "Mars/Olympus"); err == nil {
			t.Error("expected an error for an unknown timezone")
		}
	})
}
