package services

import (
	"github.com/shopspring/decimal"

	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/money"
)

// hundred is the assumed items-per-month baseline for the flat-share
// fallback: with no credit pool and no per-unit rate the monthly cost is
// spread over 100 items. A documented heuristic, not a measurement.
var hundred = decimal.NewFromInt(100)

// AllocateCost attributes a cost to one usage event from its ledger and the
// tool's default unit rates. A prioritized fallback chain; the first
// applicable rule wins and later rules never combine with earlier ones:
//
//  1. credit rate:   credits_used * ledger cost-per-credit
//  2. type units:    video_seconds * per-second rate, or
//     items_generated * per-image rate
//  3. proportional:  total_cost * credits_used / total_credits
//  4. flat share:    total_cost / 100 * items_generated
//  5. zero
func AllocateCost(sub *models.Subscription, tool *models.AITool, u *models.CreditUsage) decimal.Decimal {
	// Rule 1: the ledger's credit rate, when the event consumed credits.
	if rate, ok := sub.CostPerCredit(); ok && u.CreditsUsed > 0 {
		return money.Amount(money.MulInt(rate, u.CreditsUsed))
	}

	// Rule 2: the tool's default per-unit rates by generation type.
	if u.GenerationType == models.GenerationVideo && u.VideoSeconds > 0 &&
		tool.DefaultCostPerVideoSecond.Sign() > 0 {
		return money.Amount(money.MulInt(tool.DefaultCostPerVideoSecond, u.VideoSeconds))
	}
	if u.GenerationType == models.GenerationImage && u.ItemsGenerated > 0 &&
		tool.DefaultCostPerImage.Sign() > 0 {
		return money.Amount(money.MulInt(tool.DefaultCostPerImage, u.ItemsGenerated))
	}

	// Rule 3: proportional share of a credit-based ledger. Degenerates to
	// zero when the event consumed no credits.
	if sub.TotalCredits != nil && *sub.TotalCredits > 0 {
		proportion := decimal.NewFromInt(int64(u.CreditsUsed)).
			Div(decimal.NewFromInt(int64(*sub.TotalCredits)))
		return money.Amount(sub.TotalCost.Mul(proportion))
	}

	// Rule 4: flat share of the monthly cost.
	if sub.TotalCost.Sign() > 0 {
		return money.Amount(sub.TotalCost.Div(hundred).Mul(decimal.NewFromInt(int64(u.ItemsGenerated))))
	}

	// Rule 5.
	return decimal.Zero
}
