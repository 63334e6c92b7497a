package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/models"
)

// ToolHandler exposes the seeded tool catalog. Tools are managed through
// seeding and the CLI, so reads are all the API offers.
type ToolHandler struct {
	DB *gorm.DB
}

func NewToolHandler(db *gorm.DB) *ToolHandler {
	return &ToolHandler{DB: db}
}

// List: GET /tools?all=1. Defaults to active tools only.
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Model(&models.AITool{}).Order("display_name asc")
	if r.URL.Query().Get("all") == "" {
		q = q.Where("is_active = ?", true)
	}
	var tools []models.AITool
	if err := q.Find(&tools).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tools})
}
