package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"finora/internal/calendar"
	"finora/internal/config"
	"finora/internal/gateway"
	"finora/internal/handlers"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/notify"
	"finora/internal/services"
	"finora/internal/session"
	"finora/internal/testutil"
	"finora/internal/validator"
)

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
	config.Set(&config.Config{JWTSecret: "flow-test-secret", JWTExpirationDur: 15 * time.Minute})

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	inbox := notify.NewInbox(20)
	gateways := gateway.NewGormGateways(db)
	sessions := session.NewManager(session.Deps{
		Gateways:         gateways,
		Notifier:         inbox,
		FiredStore:       calendar.NewMemoryFiredStore(),
		Calendar:         calendar.DefaultOptions(),
		OverdueInterval:  time.Hour,
		ReminderInterval: time.Hour,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sessions.Shutdown(ctx)
	})

	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	router := newRouter(routes{
		auth:          handlers.NewAuthHandler(userService, auditService, sessions),
		incomes:       handlers.NewIncomeHandler(),
		expenses:      handlers.NewExpenseHandler(),
		clients:       handlers.NewClientHandler(),
		invoices:      handlers.NewInvoiceRecordHandler(),
		invoiceStatus: handlers.NewInvoiceHandler(auditService),
		dashboard:     handlers.NewDashboardHandler(),
		calendar:      handlers.NewCalendarHandler(auditService),
		backup:        handlers.NewBackupHandler(gateways, db, auditService),
		classify:      handlers.NewClassifyHandler(),
		notifications: handlers.NewNotificationHandler(inbox),
		sessions:      sessions,
	})
	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns its tokens.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

func TestAuthFlow_RegisterLoginRefreshLogout(t *testing.T) {
	app := setupApp(t)

	access, _ := app.registerUser(t, "auth@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/login", `{"email":"auth@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	refresh := parseJSON(t, rec)["refresh_token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["email"] != "auth@test.com" {
		t.Errorf("expected email auth@test.com, got %v", user["email"])
	}

	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	rotated := parseJSON(t, rec)["refresh_token"].(string)

	// The old refresh token was rotated out.
	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a rotated token, got %d", rec.Code)
	}

	rec = app.request("POST", "/api/v1/auth/logout", "", access)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, rotated), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestEngineFlow_PendingIncomeToPaidInvoice(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "engine@test.com", "password123")
	today := time.Now().UTC().Format(models.DateLayout)

	rec := app.request("POST", "/api/v1/clients?wait=true", `{"name":"ACME"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client failed: %d %s", rec.Code, rec.Body.String())
	}
	clientID := parseJSON(t, rec)["client"].(map[string]interface{})["id"].(string)

	body := fmt.Sprintf(`{"amount":"1500","description":"Consultoria","date":%q,"status":"pending","client_id":%q}`, today, clientID)
	rec = app.request("POST", "/api/v1/incomes?wait=true", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income failed: %d %s", rec.Code, rec.Body.String())
	}
	if cat := parseJSON(t, rec)["income"].(map[string]interface{})["category"]; cat != "Freelance" {
		t.Errorf("expected the classifier to pick Freelance, got %v", cat)
	}

	// The derived invoice appears once the side effect settles.
	var invoiceID string
	deadline := time.Now().Add(5 * time.Second)
	for invoiceID == "" && time.Now().Before(deadline) {
		rec = app.request("GET", "/api/v1/invoices", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("list invoices failed: %d %s", rec.Code, rec.Body.String())
		}
		if data, _ := parseJSON(t, rec)["data"].([]interface{}); len(data) == 1 {
			invoiceID = data[0].(map[string]interface{})["id"].(string)
		} else {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if invoiceID == "" {
		t.Fatal("derived invoice never appeared")
	}

	rec = app.request("PUT", "/api/v1/invoices/"+invoiceID+"/status?wait=true", `{"status":"paid"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark paid failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["invoice"].(map[string]interface{})["payment_date"] == nil {
		t.Error("expected a payment date on the paid invoice")
	}

	var dash map[string]interface{}
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = app.request("GET", "/api/v1/dashboard", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("dashboard failed: %d %s", rec.Code, rec.Body.String())
		}
		dash = parseJSON(t, rec)["dashboard"].(map[string]interface{})
		if dash["total_income"] == "1500" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if dash["total_income"] != "1500" {
		t.Errorf("expected total income 1500, got %v", dash["total_income"])
	}
	if dash["client_count"] != float64(1) {
		t.Errorf("expected 1 client, got %v", dash["client_count"])
	}

	var audits int64
	app.DB.Model(&models.AuditLog{}).Where("action = ?", services.AuditInvoiceStatus).Count(&audits)
	if audits != 1 {
		t.Errorf("expected 1 invoice status audit entry, got %d", audits)
	}
}

func TestEngineFlow_OwnersAreIsolated(t *testing.T) {
	app := setupApp(t)
	alice, _ := app.registerUser(t, "alice@test.com", "password123")
	bob, _ := app.registerUser(t, "bob@test.com", "password123")

	rec := app.request("POST", "/api/v1/clients?wait=true", `{"name":"Alice Co"}`, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client failed: %d %s", rec.Code, rec.Body.String())
	}
	id := parseJSON(t, rec)["client"].(map[string]interface{})["id"].(string)

	if rec := app.request("GET", "/api/v1/clients/"+id, "", bob); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another owner's client, got %d", rec.Code)
	}
	rec = app.request("GET", "/api/v1/clients", "", bob)
	if data, _ := parseJSON(t, rec)["data"].([]interface{}); len(data) != 0 {
		t.Errorf("expected no clients for bob, got %d", len(data))
	}
}
