package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studiob6/billing-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

// seedBilling creates a client and a project for invoice tests.
func seedBilling(t *testing.T, db *gorm.DB) (models.Client, models.Project) {
	t.Helper()
	client := models.Client{Name: "Atlas Media", Company: "Atlas SARL", IsActive: true}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	project := models.Project{
		ClientID:    client.ID,
		Title:       "Brand visuals",
		ServiceType: models.ServiceImage,
		Status:      models.ProjectInProgress,
		Deadline:    time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("project: %v", err)
	}
	return client, project
}

// seedLedger creates a tool and a current-month credit subscription.
func seedLedger(t *testing.T, db *gorm.DB, totalCost string, totalCredits int) (models.AITool, models.Subscription) {
	t.Helper()
	tool := models.AITool{
		Name:         "kling_ai",
		DisplayName:  "Kling AI",
		ToolType:     models.ServiceVideo,
		PricingModel: models.PricingCredits,
		IsActive:     true,
	}
	if err := db.Create(&tool).Error; err != nil {
		t.Fatalf("tool: %v", err)
	}
	credits := totalCredits
	remaining := totalCredits
	sub := models.Subscription{
		ToolID:           tool.ID,
		BillingMonth:     models.FirstOfMonth(time.Now()),
		TotalCost:        decimal.RequireFromString(totalCost),
		TotalCredits:     &credits,
		CreditsRemaining: &remaining,
		IsActive:         true,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("subscription: %v", err)
	}
	return tool, sub
}

func testSequencer() Sequencer {
	return Sequencer{Prefix: "INV-", PeriodFormat: "2006", Floor: 40}
}
