package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/validation"
)

var generationTypes = []string{
	models.GenerationImage, models.GenerationVideo, models.GenerationAudio, models.GenerationOther,
}

type LogUsageInput struct {
	ToolID         uuid.UUID        `json:"tool_id"`
	ClientID       uuid.UUID        `json:"client_id"`
	ProjectID      *uuid.UUID       `json:"project_id"`
	GenerationType string           `json:"generation_type"`
	CreditsUsed    int              `json:"credits_used"`
	ItemsGenerated int              `json:"items_generated"`
	VideoSeconds   int              `json:"video_seconds"`
	ManualCost     *decimal.Decimal `json:"manual_cost"`
	Description    string           `json:"description"`
}

func (in *LogUsageInput) validate() error {
	v := validation.Violations{}
	if in.ToolID == uuid.Nil {
		v["tool_id"] = "required"
	}
	if in.ClientID == uuid.Nil {
		v["client_id"] = "required"
	}
	if in.GenerationType == "" {
		in.GenerationType = models.GenerationImage
	}
	validation.OneOf("generation_type", in.GenerationType, generationTypes, v)
	validation.NonNegativeInt("credits_used", in.CreditsUsed, v)
	validation.NonNegativeInt("items_generated", in.ItemsGenerated, v)
	validation.NonNegativeInt("video_seconds", in.VideoSeconds, v)
	if in.ManualCost != nil {
		validation.NonNegativeAmount("manual_cost", *in.ManualCost, v)
	}
	return violationsErr(v)
}

// RecordUsage logs one generation event against the active ledger for
// (tool, current billing month). The allocator's cost and the ledger credit
// decrement are applied in the same transaction; the decrement is a clamped
// relative UPDATE so concurrent logging cannot lose updates or drive the
// pool negative.
func (s *LedgerService) RecordUsage(in LogUsageInput) (*models.CreditUsage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.Now()

	var usage models.CreditUsage
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Client{}, in.ClientID, ErrClientNotFound); err != nil {
			return err
		}
		if in.ProjectID != nil {
			if err := ensureExists(tx, &models.Project{}, *in.ProjectID, ErrProjectNotFound); err != nil {
				return err
			}
		}
		var sub models.Subscription
		err := tx.Preload("Tool").
			Where("tool_id = ? AND billing_month = ? AND is_active = ?",
				in.ToolID, models.FirstOfMonth(now), true).
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveSubscription
		}
		if err != nil {
			return err
		}

		usage = models.CreditUsage{
			SubscriptionID: sub.ID,
			ClientID:       in.ClientID,
			ProjectID:      in.ProjectID,
			GenerationType: in.GenerationType,
			CreditsUsed:    in.CreditsUsed,
			ItemsGenerated: in.ItemsGenerated,
			VideoSeconds:   in.VideoSeconds,
			ManualCost:     in.ManualCost,
			Description:    in.Description,
			UsageDate:      now,
		}
		// Computed even under a manual override, for audit/comparison.
		usage.CalculatedCost = AllocateCost(&sub, &sub.Tool, &usage)
		if err := tx.Create(&usage).Error; err != nil {
			return err
		}
		return decrementCredits(tx, sub.ID, usage.CreditsUsed)
	})
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// decrementCredits applies a clamped relative decrement to a ledger's
// credits_remaining. NULL pools (non-credit ledgers) are left untouched.
func decrementCredits(tx *gorm.DB, subID uuid.UUID, delta int) error {
	if delta <= 0 {
		return nil
	}
	return tx.Model(&models.Subscription{}).
		Where("id = ? AND credits_remaining IS NOT NULL", subID).
		Update("credits_remaining",
			gorm.Expr("CASE WHEN credits_remaining >= ? THEN credits_remaining - ? ELSE 0 END", delta, delta)).
		Error
}

type UpdateUsageInput struct {
	GenerationType *string          `json:"generation_type"`
	CreditsUsed    *int             `json:"credits_used"`
	ItemsGenerated *int             `json:"items_generated"`
	VideoSeconds   *int             `json:"video_seconds"`
	ManualCost     *decimal.Decimal `json:"manual_cost"`
	Description    *string          `json:"description"`
}

// UpdateUsage edits an existing usage event. The cost is recomputed unless
// a manual override is in place, and the ledger pool absorbs only the
// consumption delta: credits_remaining is re-derived from the recorded
// usage sum under the ledger row lock, so editing never double-decrements.
func (s *LedgerService) UpdateUsage(id uuid.UUID, in UpdateUsageInput) (*models.CreditUsage, error) {
	v := validation.Violations{}
	if in.GenerationType != nil {
		validation.OneOf("generation_type", *in.GenerationType, generationTypes, v)
	}
	if in.CreditsUsed != nil {
		validation.NonNegativeInt("credits_used", *in.CreditsUsed, v)
	}
	if in.ItemsGenerated != nil {
		validation.NonNegativeInt("items_generated", *in.ItemsGenerated, v)
	}
	if in.VideoSeconds != nil {
		validation.NonNegativeInt("video_seconds", *in.VideoSeconds, v)
	}
	if in.ManualCost != nil {
		validation.NonNegativeAmount("manual_cost", *in.ManualCost, v)
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	var usage models.CreditUsage
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&usage, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUsageNotFound
			}
			return err
		}
		var sub models.Subscription
		if err := forUpdate(tx).First(&sub, "id = ?", usage.SubscriptionID).Error; err != nil {
			return err
		}
		if err := tx.First(&sub.Tool, "id = ?", sub.ToolID).Error; err != nil {
			return err
		}

		if in.GenerationType != nil {
			usage.GenerationType = *in.GenerationType
		}
		if in.CreditsUsed != nil {
			usage.CreditsUsed = *in.CreditsUsed
		}
		if in.ItemsGenerated != nil {
			usage.ItemsGenerated = *in.ItemsGenerated
		}
		if in.VideoSeconds != nil {
			usage.VideoSeconds = *in.VideoSeconds
		}
		if in.ManualCost != nil {
			usage.ManualCost = in.ManualCost
		}
		if in.Description != nil {
			usage.Description = *in.Description
		}
		usage.CalculatedCost = AllocateCost(&sub, &sub.Tool, &usage)
		if err := tx.Save(&usage).Error; err != nil {
			return err
		}

		remaining, err := remainingCredits(tx, &sub)
		if err != nil {
			return err
		}
		return tx.Model(&sub).Update("credits_remaining", remaining).Error
	})
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// UsageTotals aggregates one client's usage.
type UsageTotals struct {
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalCredits int             `json:"total_credits"`
	TotalItems   int             `json:"total_items"`
}

// UsageByClient lists a client's usage events with their aggregate totals.
// Final cost is the manual override when present, else the calculated cost,
// folded into the aggregate with COALESCE so both paths are one query.
func (s *LedgerService) UsageByClient(clientID uuid.UUID) ([]models.CreditUsage, UsageTotals, error) {
	var usages []models.CreditUsage
	if err := s.DB.
		Where("client_id = ?", clientID).
		Order("usage_date desc").
		Find(&usages).Error; err != nil {
		return nil, UsageTotals{}, err
	}
	var totals UsageTotals
	err := s.DB.Model(&models.CreditUsage{}).
		Where("client_id = ?", clientID).
		Select("COALESCE(SUM(COALESCE(manual_cost, calculated_cost)), 0) AS total_cost, " +
			"COALESCE(SUM(credits_used), 0) AS total_credits, " +
			"COALESCE(SUM(items_generated), 0) AS total_items").
		Scan(&totals).Error
	if err != nil {
		return nil, UsageTotals{}, err
	}
	return usages, totals, nil
}
