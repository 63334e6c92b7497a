package db

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SeedTools upserts the AI tool catalog with estimated default pricing in
// the base currency. Safe to run repeatedly: keyed on tool name.
func SeedTools(db *gorm.DB) error {
	tools := []models.AITool{
		{Name: "kling_ai", DisplayName: "Kling AI", ToolType: models.ServiceVideo, PricingModel: models.PricingCredits,
			DefaultMonthlyCost: dec("300"), DefaultCreditsPerMonth: 660, DefaultCostPerVideoSecond: dec("5")},
		{Name: "freepik", DisplayName: "Freepik", ToolType: models.ServiceImage, PricingModel: models.PricingMonthly,
			DefaultMonthlyCost: dec("374"), DefaultCostPerImage: dec("1.5")},
		{Name: "openart", DisplayName: "OpenArt", ToolType: models.ServiceImage, PricingModel: models.PricingCredits,
			DefaultMonthlyCost: dec("120"), DefaultCreditsPerMonth: 3000, DefaultCostPerImage: dec("0.4")},
		{Name: "adobe", DisplayName: "Adobe Creative Cloud", ToolType: models.ServiceBoth, PricingModel: models.PricingMonthly,
			DefaultMonthlyCost: dec("213"), DefaultCreditsPerMonth: 500, DefaultCostPerImage: dec("2")},
		{Name: "suno_ai", DisplayName: "Suno AI", ToolType: models.ServiceAudio, PricingModel: models.PricingCredits,
			DefaultMonthlyCost: dec("100"), DefaultCreditsPerMonth: 500},
		{Name: "grok", DisplayName: "Grok (xAI)", ToolType: models.ServiceImage, PricingModel: models.PricingMonthly,
			DefaultMonthlyCost: dec("160"), DefaultCostPerImage: dec("1")},
		{Name: "higgsfield", DisplayName: "Higgsfield", ToolType: models.ServiceVideo, PricingModel: models.PricingCredits,
			DefaultMonthlyCost: dec("200"), DefaultCreditsPerMonth: 1000, DefaultCostPerVideoSecond: dec("3")},
		{Name: "runway", DisplayName: "Runway", ToolType: models.ServiceVideo, PricingModel: models.PricingCredits,
			DefaultMonthlyCost: dec("150"), DefaultCreditsPerMonth: 625, DefaultCostPerVideoSecond: dec("1.2")},
		{Name: "openai", DisplayName: "OpenAI / ChatGPT Plus", ToolType: models.ServiceImage, PricingModel: models.PricingMonthly,
			DefaultMonthlyCost: dec("200"), DefaultCostPerImage: dec("1")},
	}

	created, updated := 0, 0
	for _, t := range tools {
		t.IsActive = true
		var existing models.AITool
		err := db.Where("name = ?", t.Name).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			if err := db.Create(&t).Error; err != nil {
				return err
			}
			created++
		case err != nil:
			return err
		default:
			if err := db.Model(&existing).Updates(map[string]any{
				"display_name":                  t.DisplayName,
				"tool_type":                     t.ToolType,
				"pricing_model":                 t.PricingModel,
				"default_monthly_cost":          t.DefaultMonthlyCost,
				"default_credits_per_month":     t.DefaultCreditsPerMonth,
				"default_cost_per_image":        t.DefaultCostPerImage,
				"default_cost_per_video_second": t.DefaultCostPerVideoSecond,
				"is_active":                     true,
			}).Error; err != nil {
				return err
			}
			updated++
		}
	}
	logrus.WithFields(logrus.Fields{"created": created, "updated": updated}).Info("tool catalog seeded")
	return nil
}
