package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/money"
	"github.com/studiob6/billing-backend/internal/validation"
)

// LedgerService owns the subscription credit ledgers, usage logging with
// cost allocation, and client/tool selections.
type LedgerService struct {
	DB           *gorm.DB
	BaseCurrency string
	Now          func() time.Time
}

func NewLedgerService(db *gorm.DB, baseCurrency string) *LedgerService {
	return &LedgerService{DB: db, BaseCurrency: baseCurrency, Now: time.Now}
}

type UpsertSubscriptionInput struct {
	ToolID           uuid.UUID        `json:"tool_id"`
	BillingMonth     time.Time        `json:"billing_month"`
	TotalCost        decimal.Decimal  `json:"total_cost"`
	OriginalAmount   *decimal.Decimal `json:"original_amount"`
	OriginalCurrency string           `json:"original_currency"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate"`
	TotalCredits     *int             `json:"total_credits"`
	Notes            string           `json:"notes"`
}

func (in *UpsertSubscriptionInput) validate(base string) error {
	v := validation.Violations{}
	if in.ToolID == uuid.Nil {
		v["tool_id"] = "required"
	}
	if in.BillingMonth.IsZero() {
		v["billing_month"] = "required"
	}
	validation.NonNegativeAmount("total_cost", in.TotalCost, v)
	if in.TotalCredits != nil {
		validation.NonNegativeInt("total_credits", *in.TotalCredits, v)
	}
	if in.foreign(base) {
		if in.OriginalAmount == nil {
			v["original_amount"] = "required_for_foreign_currency"
		} else {
			validation.NonNegativeAmount("original_amount", *in.OriginalAmount, v)
		}
		if in.ExchangeRate == nil {
			v["exchange_rate"] = "required_for_foreign_currency"
		} else {
			validation.PositiveAmount("exchange_rate", *in.ExchangeRate, v)
		}
	}
	return violationsErr(v)
}

func (in *UpsertSubscriptionInput) foreign(base string) bool {
	cur := strings.ToUpper(strings.TrimSpace(in.OriginalCurrency))
	return cur != "" && cur != strings.ToUpper(base)
}

// Upsert creates or updates the unique (tool, billing_month) ledger row.
// Foreign-currency costs overwrite total_cost with original_amount *
// exchange_rate; the supplied total_cost is ignored in that case.
// credits_remaining is initialized to total_credits on creation and, on
// update, recomputed from recorded usage so the clamped invariant holds.
func (s *LedgerService) Upsert(in UpsertSubscriptionInput) (*models.Subscription, error) {
	if err := in.validate(s.BaseCurrency); err != nil {
		return nil, err
	}
	month := models.FirstOfMonth(in.BillingMonth)

	totalCost := money.Amount(in.TotalCost)
	if in.foreign(s.BaseCurrency) {
		totalCost = money.Amount(in.OriginalAmount.Mul(*in.ExchangeRate))
	}

	var sub models.Subscription
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.AITool{}, in.ToolID, ErrToolNotFound); err != nil {
			return err
		}
		err := forUpdate(tx).
			Where("tool_id = ? AND billing_month = ?", in.ToolID, month).
			First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.Subscription{
				ToolID:           in.ToolID,
				BillingMonth:     month,
				TotalCost:        totalCost,
				OriginalAmount:   in.OriginalAmount,
				OriginalCurrency: strings.ToUpper(strings.TrimSpace(in.OriginalCurrency)),
				ExchangeRate:     in.ExchangeRate,
				TotalCredits:     in.TotalCredits,
				CreditsRemaining: in.TotalCredits,
				Notes:            in.Notes,
				IsActive:         true,
			}
			return tx.Create(&sub).Error
		case err != nil:
			return err
		}

		sub.TotalCost = totalCost
		sub.OriginalAmount = in.OriginalAmount
		sub.OriginalCurrency = strings.ToUpper(strings.TrimSpace(in.OriginalCurrency))
		sub.ExchangeRate = in.ExchangeRate
		sub.TotalCredits = in.TotalCredits
		sub.Notes = in.Notes
		remaining, err := remainingCredits(tx, &sub)
		if err != nil {
			return err
		}
		sub.CreditsRemaining = remaining
		return tx.Model(&sub).Updates(map[string]any{
			"total_cost":        sub.TotalCost,
			"original_amount":   sub.OriginalAmount,
			"original_currency": sub.OriginalCurrency,
			"exchange_rate":     sub.ExchangeRate,
			"total_credits":     sub.TotalCredits,
			"credits_remaining": sub.CreditsRemaining,
			"notes":             sub.Notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// remainingCredits evaluates max(0, total_credits - sum(credits_used)) for
// a ledger, nil when the ledger is not credit-based. Caller holds the row
// lock.
func remainingCredits(tx *gorm.DB, sub *models.Subscription) (*int, error) {
	if sub.TotalCredits == nil {
		return nil, nil
	}
	var used int
	if err := tx.Model(&models.CreditUsage{}).
		Where("subscription_id = ?", sub.ID).
		Select("COALESCE(SUM(credits_used), 0)").
		Scan(&used).Error; err != nil {
		return nil, err
	}
	remaining := *sub.TotalCredits - used
	if remaining < 0 {
		remaining = 0
	}
	return &remaining, nil
}

// ActiveForMonth resolves the active ledger for a tool in the month of at.
func (s *LedgerService) ActiveForMonth(toolID uuid.UUID, at time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.Preload("Tool").
		Where("tool_id = ? AND billing_month = ? AND is_active = ?", toolID, models.FirstOfMonth(at), true).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

type UpsertSelectionInput struct {
	ClientID uuid.UUID `json:"client_id"`
	ToolID   uuid.UUID `json:"tool_id"`
	IsActive *bool     `json:"is_active"`
	Notes    string    `json:"notes"`
}

// UpsertSelection creates or updates the (client, tool) selection.
// Idempotent under repeated identical calls.
func (s *LedgerService) UpsertSelection(in UpsertSelectionInput) (*models.ClientServiceSelection, error) {
	v := validation.Violations{}
	if in.ClientID == uuid.Nil {
		v["client_id"] = "required"
	}
	if in.ToolID == uuid.Nil {
		v["tool_id"] = "required"
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	var sel models.ClientServiceSelection
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Client{}, in.ClientID, ErrClientNotFound); err != nil {
			return err
		}
		if err := ensureExists(tx, &models.AITool{}, in.ToolID, ErrToolNotFound); err != nil {
			return err
		}
		err := tx.Where("client_id = ? AND tool_id = ?", in.ClientID, in.ToolID).First(&sel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sel = models.ClientServiceSelection{
				ClientID: in.ClientID,
				ToolID:   in.ToolID,
				IsActive: active,
				Notes:    in.Notes,
			}
			return tx.Create(&sel).Error
		}
		if err != nil {
			return err
		}
		sel.IsActive = active
		sel.Notes = in.Notes
		return tx.Model(&sel).Updates(map[string]any{"is_active": sel.IsActive, "notes": sel.Notes}).Error
	})
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// SetClientTools replaces a client's active tool set: everything not listed
// is deactivated, listed tools are upserted active.
func (s *LedgerService) SetClientTools(clientID uuid.UUID, toolIDs []uuid.UUID) ([]models.ClientServiceSelection, error) {
	if clientID == uuid.Nil {
		return nil, violationsErr(validation.Violations{"client_id": "required"})
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Client{}, clientID, ErrClientNotFound); err != nil {
			return err
		}
		if err := tx.Model(&models.ClientServiceSelection{}).
			Where("client_id = ?", clientID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		for _, toolID := range toolIDs {
			if err := ensureExists(tx, &models.AITool{}, toolID, ErrToolNotFound); err != nil {
				return err
			}
			var sel models.ClientServiceSelection
			err := tx.Where("client_id = ? AND tool_id = ?", clientID, toolID).First(&sel).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				sel = models.ClientServiceSelection{ClientID: clientID, ToolID: toolID, IsActive: true}
				if err := tx.Create(&sel).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.Model(&sel).Update("is_active", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []models.ClientServiceSelection
	if err := s.DB.Preload("Tool").
		Where("client_id = ? AND is_active = ?", clientID, true).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
