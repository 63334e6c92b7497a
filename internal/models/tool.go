package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pricing models for AI tools.
const (
	PricingMonthly = "monthly"
	PricingCredits = "credits"
	PricingPerUse  = "per_use"
)

// AITool is a catalog entry for an upstream generation service.
// Reference data: written by the seed-tools command, read-only at runtime.
// The default per-unit costs are fallbacks used by the cost allocator when a
// ledger has no usable credit rate.
type AITool struct {
	ID                        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name                      string          `gorm:"not null;uniqueIndex" json:"name"`
	DisplayName               string          `gorm:"not null" json:"display_name"`
	ToolType                  string          `gorm:"not null" json:"tool_type"`
	PricingModel              string          `gorm:"not null;default:'monthly'" json:"pricing_model"`
	DefaultMonthlyCost        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"default_monthly_cost"`
	DefaultCreditsPerMonth    int             `gorm:"not null;default:0" json:"default_credits_per_month"`
	DefaultCostPerImage       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"default_cost_per_image"`
	DefaultCostPerVideoSecond decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"default_cost_per_video_second"`
	Icon                      string          `json:"icon"`
	IsActive                  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

func (t *AITool) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
