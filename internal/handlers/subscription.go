package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
)

type SubscriptionHandler struct {
	DB        *gorm.DB
	Ledger    *services.LedgerService
	Analytics *services.AnalyticsService
}

func NewSubscriptionHandler(db *gorm.DB, ledger *services.LedgerService, analytics *services.AnalyticsService) *SubscriptionHandler {
	return &SubscriptionHandler{DB: db, Ledger: ledger, Analytics: analytics}
}

// Upsert: POST /subscriptions. Create-or-update keyed on (tool, billing_month).
func (h *SubscriptionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in services.UpsertSubscriptionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	sub, err := h.Ledger.Upsert(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

// CurrentMonth: GET /subscriptions/current-month
func (h *SubscriptionHandler) CurrentMonth(w http.ResponseWriter, r *http.Request) {
	first := models.FirstOfMonth(time.Now())
	var subs []models.Subscription
	if err := h.DB.Preload("Tool").
		Where("billing_month = ? AND is_active = ?", first, true).
		Find(&subs).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": subs, "month": first.Format("2006-01")})
}

// UsageByClient: GET /subscriptions/{id}/usage-by-client
func (h *SubscriptionHandler) UsageByClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var sub models.Subscription
	if err := h.DB.Preload("Tool").First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeServiceError(w, services.ErrSubscriptionNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}
	rows, err := h.Analytics.UsageByClientForSubscription(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payload := map[string]any{
		"subscription":    sub,
		"usage_by_client": rows,
	}
	if cpc, ok := sub.CostPerCredit(); ok {
		payload["cost_per_credit"] = cpc
	}
	httpx.JSON(w, http.StatusOK, payload)
}
