package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Client{}, &models.Project{}, &models.AITool{},
		&models.Subscription{}, &models.CreditUsage{}, &models.ClientServiceSelection{},
		&models.Invoice{}, &models.InvoiceItem{}, &models.Payment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClientProject(t *testing.T, db *gorm.DB) (models.Client, models.Project) {
	t.Helper()
	client := models.Client{Name: "Nova Films", IsActive: true}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	project := models.Project{
		ClientID:    client.ID,
		Title:       "Launch teaser",
		ServiceType: models.ServiceVideo,
		Status:      models.ProjectInProgress,
		Deadline:    time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("project: %v", err)
	}
	return client, project
}

func newTestInvoiceHandler(db *gorm.DB) *InvoiceHandler {
	seq := services.Sequencer{Prefix: "INV-", PeriodFormat: "2006", Floor: 40}
	return NewInvoiceHandler(db, services.NewInvoiceService(db, seq))
}

func TestInvoiceCreateAndPaymentFlow(t *testing.T) {
	db := setupHandlerTestDB(t)
	client, project := seedClientProject(t, db)
	h := newTestInvoiceHandler(db)

	body := fmt.Sprintf(`{"client_id":%q,"project_id":%q,"total_amount":"250.00","due_date":"2026-12-31T00:00:00Z"}`,
		client.ID, project.ID)
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.InvoiceNumber == "" {
		t.Fatal("missing invoice number")
	}
	if created.PaymentStatus != models.StatusUnpaid {
		t.Fatalf("expected unpaid, got %s", created.PaymentStatus)
	}

	// record a partial payment through the handler
	payReq := httptest.NewRequest(http.MethodPost, "/invoices/x/payments",
		strings.NewReader(`{"amount":"100.00","method":"bank_transfer"}`))
	payReq = mux.SetURLVars(payReq, map[string]string{"id": created.ID.String()})
	payW := httptest.NewRecorder()
	h.RecordPayment(payW, payReq)
	if payW.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", payW.Code, payW.Body.String())
	}
	var paid models.Invoice
	if err := json.Unmarshal(payW.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if paid.PaymentStatus != models.StatusPartial {
		t.Fatalf("expected partial, got %s", paid.PaymentStatus)
	}
}

func TestInvoiceOverpaymentIs409(t *testing.T) {
	db := setupHandlerTestDB(t)
	client, project := seedClientProject(t, db)
	h := newTestInvoiceHandler(db)

	inv, err := h.Svc.Create(services.CreateInvoiceInput{
		ClientID:    client.ID,
		ProjectID:   project.ID,
		TotalAmount: dec("100.00"),
		DueDate:     time.Now().AddDate(0, 0, 30),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/invoices/x/payments",
		strings.NewReader(`{"amount":"100.01","method":"cash"}`))
	req = mux.SetURLVars(req, map[string]string{"id": inv.ID.String()})
	w := httptest.NewRecorder()
	h.RecordPayment(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestInvoiceValidationIs400(t *testing.T) {
	db := setupHandlerTestDB(t)
	h := newTestInvoiceHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"total_amount":"-5"}`))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "validation_failed" {
		t.Fatalf("expected validation_failed, got %s", resp.Error)
	}
	for _, field := range []string{"client_id", "project_id", "total_amount", "due_date"} {
		if resp.Details[field] == "" {
			t.Fatalf("missing violation for %s: %v", field, resp.Details)
		}
	}
}

func TestInvoiceListFiltersByStatus(t *testing.T) {
	db := setupHandlerTestDB(t)
	client, project := seedClientProject(t, db)
	h := newTestInvoiceHandler(db)

	for i, status := range []string{models.StatusUnpaid, models.StatusPaid, models.StatusUnpaid} {
		inv := models.Invoice{
			InvoiceNumber: fmt.Sprintf("INV-%d", i+1),
			ClientID:      client.ID,
			ProjectID:     project.ID,
			TotalAmount:   dec("50.00"),
			PaymentStatus: status,
			DueDate:       time.Now().AddDate(0, 0, 30),
			IssuedDate:    time.Now(),
		}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/invoices?status=unpaid", nil)
	w := httptest.NewRecorder()
	h.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var list struct {
		Items []models.Invoice `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 2 {
		t.Fatalf("expected 2 unpaid invoices, got total=%d len=%d", list.Total, len(list.Items))
	}
}

func TestInvoiceNotFoundIs404(t *testing.T) {
	db := setupHandlerTestDB(t)
	h := newTestInvoiceHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/invoices/x/payments",
		strings.NewReader(`{"amount":"10.00","method":"cash"}`))
	req = mux.SetURLVars(req, map[string]string{"id": "2c5e9a10-9df6-4f32-8f6a-3a3d7e2d9b11"})
	w := httptest.NewRecorder()
	h.RecordPayment(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}
