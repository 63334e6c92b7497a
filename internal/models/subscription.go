package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/money"
)

// Subscription is the cost-and-credit ledger for one tool over one billing
// month (first day of the month). One row per (tool, billing_month).
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ToolID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_tool_month" json:"tool_id"`
	Tool         AITool    `gorm:"foreignKey:ToolID" json:"-"`
	BillingMonth time.Time `gorm:"type:date;not null;uniqueIndex:idx_subscriptions_tool_month" json:"billing_month"`

	// Cost actually paid, in the base currency.
	TotalCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_cost"`

	// Original price when paid in a foreign currency. When set together
	// with ExchangeRate, TotalCost = OriginalAmount * ExchangeRate.
	OriginalAmount   *decimal.Decimal `gorm:"type:decimal(10,2)" json:"original_amount,omitempty"`
	OriginalCurrency string           `gorm:"size:3" json:"original_currency,omitempty"`
	ExchangeRate     *decimal.Decimal `gorm:"type:decimal(10,4)" json:"exchange_rate,omitempty"`

	// Credit pool. Nil means the subscription is not credit-based.
	TotalCredits     *int `json:"total_credits,omitempty"`
	CreditsRemaining *int `json:"credits_remaining,omitempty"`

	Notes     string    `json:"notes"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CostPerCredit returns TotalCost/TotalCredits at rate precision. The bool
// is false when the subscription is not credit-based; callers must not
// conflate "unavailable" with a zero rate.
func (s *Subscription) CostPerCredit() (decimal.Decimal, bool) {
	if s.TotalCredits == nil || *s.TotalCredits <= 0 {
		return decimal.Zero, false
	}
	return money.DivRate(s.TotalCost, decimal.NewFromInt(int64(*s.TotalCredits))), true
}

// Generation types for usage events.
const (
	GenerationImage = "image"
	GenerationVideo = "video"
	GenerationAudio = "audio"
	GenerationOther = "other"
)

// CreditUsage is one logged generation event attributed to a client and a
// subscription ledger.
type CreditUsage struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID uuid.UUID    `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID" json:"-"`
	ClientID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"client_id"`
	Client         Client       `gorm:"foreignKey:ClientID" json:"-"`
	ProjectID      *uuid.UUID   `gorm:"type:uuid" json:"project_id,omitempty"`

	GenerationType string `gorm:"not null;default:'image'" json:"generation_type"`
	CreditsUsed    int    `gorm:"not null;default:0" json:"credits_used"`
	ItemsGenerated int    `gorm:"not null;default:1" json:"items_generated"`
	VideoSeconds   int    `gorm:"not null;default:0" json:"video_seconds"`

	// CalculatedCost is what the allocator computed; ManualCost, when set,
	// overrides it as the billable figure but the computed value is kept
	// for audit.
	CalculatedCost decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"calculated_cost"`
	ManualCost     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"manual_cost,omitempty"`

	Description string    `gorm:"size:500" json:"description"`
	UsageDate   time.Time `gorm:"not null;index" json:"usage_date"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *CreditUsage) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FinalCost is the billable cost: the manual override when present,
// otherwise the calculated cost.
func (u *CreditUsage) FinalCost() decimal.Decimal {
	if u.ManualCost != nil {
		return *u.ManualCost
	}
	return u.CalculatedCost
}

// ClientServiceSelection records which tools are assigned to a client.
// Unique per (client, tool); creation is an upsert.
type ClientServiceSelection struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_selections_client_tool" json:"client_id"`
	Client   Client    `gorm:"foreignKey:ClientID" json:"-"`
	ToolID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_selections_client_tool" json:"tool_id"`
	Tool     AITool    `gorm:"foreignKey:ToolID" json:"-"`
	IsActive bool      `gorm:"not null;default:true" json:"is_active"`
	Notes    string    `json:"notes"`
	AddedAt  time.Time `gorm:"autoCreateTime" json:"added_at"`
}

func (s *ClientServiceSelection) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// FirstOfMonth normalizes any date to the billing-month key it belongs to.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
