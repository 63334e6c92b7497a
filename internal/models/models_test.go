package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Client{}, &Project{}, &Invoice{}, &InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestInvoiceItemTotalPriceInvariant(t *testing.T) {
	db := setupModelTestDB(t)

	item := InvoiceItem{
		Description: "Video edit",
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("40.50"),
		// deliberately wrong; the hook must overwrite it
		TotalPrice: decimal.RequireFromString("999.99"),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if !item.TotalPrice.Equal(decimal.RequireFromString("121.50")) {
		t.Fatalf("expected 121.50, got %s", item.TotalPrice)
	}

	// repeated saves keep the invariant without compounding
	item.Quantity = 2
	if err := db.Save(&item).Error; err != nil {
		t.Fatalf("save: %v", err)
	}
	if !item.TotalPrice.Equal(decimal.RequireFromString("81.00")) {
		t.Fatalf("expected 81.00, got %s", item.TotalPrice)
	}
	if err := db.Save(&item).Error; err != nil {
		t.Fatalf("resave: %v", err)
	}
	if !item.TotalPrice.Equal(decimal.RequireFromString("81.00")) {
		t.Fatalf("expected stable 81.00, got %s", item.TotalPrice)
	}
}

func TestProjectIsOverdue(t *testing.T) {
	now := time.Now()
	p := Project{Status: ProjectInProgress, Deadline: now.AddDate(0, 0, -1)}
	if !p.IsOverdue(now) {
		t.Fatal("in-progress past deadline must be overdue")
	}
	p.Status = ProjectCompleted
	if p.IsOverdue(now) {
		t.Fatal("completed project is never overdue")
	}
	p.Status = ProjectCancelled
	if p.IsOverdue(now) {
		t.Fatal("cancelled project is never overdue")
	}
	p.Status = ProjectPending
	p.Deadline = now.AddDate(0, 0, 1)
	if p.IsOverdue(now) {
		t.Fatal("future deadline is not overdue")
	}
}

func TestFirstOfMonth(t *testing.T) {
	at := time.Date(2026, 7, 23, 14, 30, 0, 0, time.UTC)
	want := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := FirstOfMonth(at); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInvoiceAmountRemaining(t *testing.T) {
	inv := Invoice{
		TotalAmount: decimal.RequireFromString("200.00"),
		AmountPaid:  decimal.RequireFromString("75.50"),
	}
	if !inv.AmountRemaining().Equal(decimal.RequireFromString("124.50")) {
		t.Fatalf("got %s", inv.AmountRemaining())
	}
}
