package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finora/internal/gateway"
	"finora/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// OwnerContext returns a background context authenticated as userID.
func OwnerContext(userID string) context.Context {
	return gateway.WithOwner(context.Background(), userID)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestClient creates a client owned by ownerID.
func CreateTestClient(t *testing.T, db *gorm.DB, ownerID string) *models.Client {
	t.Helper()

	client := &models.Client{
		Owned: models.Owned{OwnerID: ownerID},
		Name:  fmt.Sprintf("Client %d", nextID()),
		Email: fmt.Sprintf("client%d@test.com", nextID()),
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return client
}

// CreateTestIncome creates a received income of amount on date.
func CreateTestIncome(t *testing.T, db *gorm.DB, ownerID string, amount int64, date time.Time) *models.Income {
	t.Helper()

	income := &models.Income{
		Owned:       models.Owned{OwnerID: ownerID},
		Amount:      decimal.NewFromInt(amount),
		Description: fmt.Sprintf("Income %d", nextID()),
		Category:    "Serviços",
		Date:        date,
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return income
}

// CreateTestExpense creates an expense of amount on date.
func CreateTestExpense(t *testing.T, db *gorm.DB, ownerID string, amount int64, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		Owned:       models.Owned{OwnerID: ownerID},
		Amount:      decimal.NewFromInt(amount),
		Description: fmt.Sprintf("Expense %d", nextID()),
		Category:    "Outros",
		Date:        date,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestInvoice creates a pending invoice for clientID due on dueDate.
func CreateTestInvoice(t *testing.T, db *gorm.DB, ownerID, clientID string, amount int64, dueDate time.Time) *models.Invoice {
	t.Helper()

	invoice := &models.Invoice{
		Owned:       models.Owned{OwnerID: ownerID},
		ClientID:    clientID,
		Description: fmt.Sprintf("Invoice %d", nextID()),
		Amount:      decimal.NewFromInt(amount),
		DueDate:     dueDate,
		Status:      models.InvoiceStatusPending,
	}
	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("failed to create test invoice: %v", err)
	}
	return invoice
}
