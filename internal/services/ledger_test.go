package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studiob6/billing-backend/internal/models"
)

func newLedgerService(t *testing.T) *LedgerService {
	t.Helper()
	return NewLedgerService(setupTestDB(t), "MAD")
}

func TestUpsertSubscriptionCreateThenUpdate(t *testing.T) {
	svc := newLedgerService(t)
	tool := models.AITool{Name: "freepik", DisplayName: "Freepik", ToolType: models.ServiceImage, IsActive: true}
	if err := svc.DB.Create(&tool).Error; err != nil {
		t.Fatalf("tool: %v", err)
	}
	month := time.Date(2026, 7, 12, 10, 0, 0, 0, time.UTC)

	sub, err := svc.Upsert(UpsertSubscriptionInput{
		ToolID:       tool.ID,
		BillingMonth: month,
		TotalCost:    dec("120.00"),
		TotalCredits: intp(1000),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sub.BillingMonth.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("billing month not normalized: %v", sub.BillingMonth)
	}
	if sub.CreditsRemaining == nil || *sub.CreditsRemaining != 1000 {
		t.Fatalf("remaining not initialized: %v", sub.CreditsRemaining)
	}

	// same tool+month updates in place
	again, err := svc.Upsert(UpsertSubscriptionInput{
		ToolID:       tool.ID,
		BillingMonth: month.AddDate(0, 0, 5),
		TotalCost:    dec("150.00"),
		TotalCredits: intp(1200),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if again.ID != sub.ID {
		t.Fatalf("expected update of %s, got new row %s", sub.ID, again.ID)
	}
	var count int64
	if err := svc.DB.Model(&models.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ledger row, got %d", count)
	}
	if again.CreditsRemaining == nil || *again.CreditsRemaining != 1200 {
		t.Fatalf("remaining not recomputed: %v", again.CreditsRemaining)
	}
}

func TestUpsertSubscriptionForeignCurrency(t *testing.T) {
	svc := newLedgerService(t)
	tool := models.AITool{Name: "runway", DisplayName: "Runway", ToolType: models.ServiceVideo, IsActive: true}
	if err := svc.DB.Create(&tool).Error; err != nil {
		t.Fatalf("tool: %v", err)
	}

	amount := dec("95.00")
	rate := dec("10.25")
	sub, err := svc.Upsert(UpsertSubscriptionInput{
		ToolID:           tool.ID,
		BillingMonth:     time.Now(),
		TotalCost:        dec("1.00"), // ignored for foreign currency
		OriginalAmount:   &amount,
		OriginalCurrency: "usd",
		ExchangeRate:     &rate,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !sub.TotalCost.Equal(dec("973.75")) {
		t.Fatalf("expected converted 973.75, got %s", sub.TotalCost)
	}
	if sub.OriginalCurrency != "USD" {
		t.Fatalf("currency not normalized: %s", sub.OriginalCurrency)
	}
}

func TestUpsertSubscriptionForeignCurrencyRequiresRate(t *testing.T) {
	svc := newLedgerService(t)
	amount := dec("95.00")
	_, err := svc.Upsert(UpsertSubscriptionInput{
		ToolID:           uuid.New(),
		BillingMonth:     time.Now(),
		OriginalAmount:   &amount,
		OriginalCurrency: "USD",
	})
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Violations["exchange_rate"] == "" {
		t.Fatalf("expected exchange_rate violation, got %v", ve.Violations)
	}
}

func TestRecordUsageDecrementsCredits(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool, sub := seedLedger(t, svc.DB, "100.00", 1000)

	usage, err := svc.RecordUsage(LogUsageInput{
		ToolID:      tool.ID,
		ClientID:    client.ID,
		CreditsUsed: 100,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	// 1000 credits for 100.00 -> 0.10/credit -> 100 credits cost 10.00
	if !usage.CalculatedCost.Equal(dec("10.00")) {
		t.Fatalf("expected cost 10.00, got %s", usage.CalculatedCost)
	}

	var fresh models.Subscription
	if err := svc.DB.First(&fresh, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CreditsRemaining == nil || *fresh.CreditsRemaining != 900 {
		t.Fatalf("expected 900 remaining, got %v", fresh.CreditsRemaining)
	}
}

func TestRecordUsageClampsAtZero(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool, sub := seedLedger(t, svc.DB, "100.00", 50)

	if _, err := svc.RecordUsage(LogUsageInput{ToolID: tool.ID, ClientID: client.ID, CreditsUsed: 80}); err != nil {
		t.Fatalf("record: %v", err)
	}

	var fresh models.Subscription
	if err := svc.DB.First(&fresh, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CreditsRemaining == nil || *fresh.CreditsRemaining != 0 {
		t.Fatalf("expected clamp at 0, got %v", fresh.CreditsRemaining)
	}
}

func TestRecordUsageNoActiveSubscription(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool := models.AITool{Name: "suno_ai", DisplayName: "Suno", ToolType: models.ServiceAudio, IsActive: true}
	if err := svc.DB.Create(&tool).Error; err != nil {
		t.Fatalf("tool: %v", err)
	}

	_, err := svc.RecordUsage(LogUsageInput{ToolID: tool.ID, ClientID: client.ID, CreditsUsed: 10})
	if !errors.Is(err, ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestRecordUsageManualOverrideKeepsCalculated(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool, _ := seedLedger(t, svc.DB, "100.00", 1000)

	manual := dec("99.00")
	usage, err := svc.RecordUsage(LogUsageInput{
		ToolID:      tool.ID,
		ClientID:    client.ID,
		CreditsUsed: 100,
		ManualCost:  &manual,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	// computed value is stored alongside the override
	if !usage.CalculatedCost.Equal(dec("10.00")) {
		t.Fatalf("expected calculated 10.00, got %s", usage.CalculatedCost)
	}
	if !usage.FinalCost().Equal(dec("99.00")) {
		t.Fatalf("expected final 99.00, got %s", usage.FinalCost())
	}
}

func TestUpdateUsageAppliesOnlyDelta(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool, sub := seedLedger(t, svc.DB, "100.00", 1000)

	usage, err := svc.RecordUsage(LogUsageInput{ToolID: tool.ID, ClientID: client.ID, CreditsUsed: 100})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	// editing 100 -> 150 must absorb only the 50-credit delta
	updated, err := svc.UpdateUsage(usage.ID, UpdateUsageInput{CreditsUsed: intp(150)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CalculatedCost.Equal(dec("15.00")) {
		t.Fatalf("expected recomputed cost 15.00, got %s", updated.CalculatedCost)
	}

	var fresh models.Subscription
	if err := svc.DB.First(&fresh, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CreditsRemaining == nil || *fresh.CreditsRemaining != 850 {
		t.Fatalf("expected 850 remaining, got %v", fresh.CreditsRemaining)
	}

	// editing down restores credits
	if _, err := svc.UpdateUsage(usage.ID, UpdateUsageInput{CreditsUsed: intp(20)}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if err := svc.DB.First(&fresh, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CreditsRemaining == nil || *fresh.CreditsRemaining != 980 {
		t.Fatalf("expected 980 remaining, got %v", fresh.CreditsRemaining)
	}
}

func TestUsageByClientTotals(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	tool, _ := seedLedger(t, svc.DB, "100.00", 1000)

	if _, err := svc.RecordUsage(LogUsageInput{ToolID: tool.ID, ClientID: client.ID, CreditsUsed: 100, ItemsGenerated: 4}); err != nil {
		t.Fatalf("first: %v", err)
	}
	manual := dec("5.00")
	if _, err := svc.RecordUsage(LogUsageInput{ToolID: tool.ID, ClientID: client.ID, CreditsUsed: 50, ItemsGenerated: 2, ManualCost: &manual}); err != nil {
		t.Fatalf("second: %v", err)
	}

	usages, totals, err := svc.UsageByClient(client.ID)
	if err != nil {
		t.Fatalf("by client: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("expected 2 usages, got %d", len(usages))
	}
	// 10.00 calculated + 5.00 manual override
	if !totals.TotalCost.Equal(dec("15.00")) {
		t.Fatalf("expected total 15.00, got %s", totals.TotalCost)
	}
	if totals.TotalCredits != 150 || totals.TotalItems != 6 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestSetClientToolsReplacesActiveSet(t *testing.T) {
	svc := newLedgerService(t)
	client, _ := seedBilling(t, svc.DB)
	mkTool := func(name string) models.AITool {
		tool := models.AITool{Name: name, DisplayName: name, ToolType: models.ServiceImage, IsActive: true}
		if err := svc.DB.Create(&tool).Error; err != nil {
			t.Fatalf("tool %s: %v", name, err)
		}
		return tool
	}
	a := mkTool("openart")
	b := mkTool("grok")
	c := mkTool("higgsfield")

	if _, err := svc.SetClientTools(client.ID, []uuid.UUID{a.ID, b.ID}); err != nil {
		t.Fatalf("first set: %v", err)
	}
	sels, err := svc.SetClientTools(client.ID, []uuid.UUID{b.ID, c.ID})
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if len(sels) != 2 {
		t.Fatalf("expected 2 active selections, got %d", len(sels))
	}
	active := map[uuid.UUID]bool{}
	for _, s := range sels {
		active[s.ToolID] = true
	}
	if active[a.ID] || !active[b.ID] || !active[c.ID] {
		t.Fatalf("unexpected active set: %v", active)
	}
}
