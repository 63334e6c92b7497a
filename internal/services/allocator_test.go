package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/studiob6/billing-backend/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intp(n int) *int { return &n }

func TestAllocateCostCreditRate(t *testing.T) {
	sub := &models.Subscription{TotalCost: dec("100.00"), TotalCredits: intp(1000)}
	tool := &models.AITool{}
	u := &models.CreditUsage{GenerationType: models.GenerationImage, CreditsUsed: 100, ItemsGenerated: 5}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.Equal(dec("10.00")), "got %s", got)
}

func TestAllocateCostVideoSeconds(t *testing.T) {
	// no credit pool, so the per-second default applies
	sub := &models.Subscription{TotalCost: dec("300.00")}
	tool := &models.AITool{DefaultCostPerVideoSecond: dec("2.00")}
	u := &models.CreditUsage{GenerationType: models.GenerationVideo, VideoSeconds: 50}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.Equal(dec("100.00")), "got %s", got)
}

func TestAllocateCostImageItems(t *testing.T) {
	sub := &models.Subscription{TotalCost: dec("300.00")}
	tool := &models.AITool{DefaultCostPerImage: dec("0.50")}
	u := &models.CreditUsage{GenerationType: models.GenerationImage, ItemsGenerated: 8}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.Equal(dec("4.00")), "got %s", got)
}

func TestAllocateCostProportionalDegeneratesToZero(t *testing.T) {
	// credit-based ledger, zero credits consumed, no per-unit rates:
	// the proportional rule yields exactly zero
	sub := &models.Subscription{TotalCost: dec("250.00"), TotalCredits: intp(500)}
	tool := &models.AITool{}
	u := &models.CreditUsage{GenerationType: models.GenerationImage, CreditsUsed: 0, ItemsGenerated: 3}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestAllocateCostFlatShare(t *testing.T) {
	sub := &models.Subscription{TotalCost: dec("500.00")}
	tool := &models.AITool{}
	u := &models.CreditUsage{GenerationType: models.GenerationOther, ItemsGenerated: 10}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.Equal(dec("50.00")), "got %s", got)
}

func TestAllocateCostZeroFallback(t *testing.T) {
	sub := &models.Subscription{}
	tool := &models.AITool{}
	u := &models.CreditUsage{GenerationType: models.GenerationImage, ItemsGenerated: 1}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestAllocateCostEarlierRuleWins(t *testing.T) {
	// both a credit rate and a per-second rate are available; the credit
	// rate must win and the rates never combine
	sub := &models.Subscription{TotalCost: dec("100.00"), TotalCredits: intp(1000)}
	tool := &models.AITool{DefaultCostPerVideoSecond: dec("2.00")}
	u := &models.CreditUsage{GenerationType: models.GenerationVideo, CreditsUsed: 50, VideoSeconds: 10}

	got := AllocateCost(sub, tool, u)
	assert.True(t, got.Equal(dec("5.00")), "got %s", got)
}

func TestCostPerCreditRounding(t *testing.T) {
	sub := &models.Subscription{TotalCost: dec("100.00"), TotalCredits: intp(3000)}
	rate, ok := sub.CostPerCredit()
	assert.True(t, ok)
	assert.True(t, rate.Equal(dec("0.0333")), "got %s", rate)

	sub.TotalCredits = nil
	_, ok = sub.CostPerCredit()
	assert.False(t, ok)
}
