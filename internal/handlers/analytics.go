package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/studiob6/billing-backend/internal/cache"
	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
)

// AnalyticsHandler serves the read-only aggregate endpoints. Responses go
// through a TTL cache keyed on endpoint, parameters and the current date
// bucket; the cache is transparent.
type AnalyticsHandler struct {
	Svc   *services.AnalyticsService
	Cache *cache.Cache
}

func NewAnalyticsHandler(svc *services.AnalyticsService, c *cache.Cache) *AnalyticsHandler {
	return &AnalyticsHandler{Svc: svc, Cache: c}
}

func (h *AnalyticsHandler) cached(w http.ResponseWriter, key string, compute func() (any, error)) {
	if v, ok := h.Cache.Get(key); ok {
		httpx.JSON(w, http.StatusOK, v)
		return
	}
	v, err := compute()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Set(key, v)
	httpx.JSON(w, http.StatusOK, v)
}

// Overview: GET /analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	key := cache.Key("overview", cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.Overview() })
}

// Revenue: GET /analytics/revenue?period=monthly&months=12
func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "monthly"
	}
	months := 12
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			months = n
		}
	}
	key := cache.Key("revenue", period, strconv.Itoa(months), cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) {
		data, err := h.Svc.RevenueSeries(period, months)
		if err != nil {
			return nil, err
		}
		return map[string]any{"period": period, "data": data}, nil
	})
}

// Clients: GET /analytics/clients?months=12
func (h *AnalyticsHandler) Clients(w http.ResponseWriter, r *http.Request) {
	months := 12
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			months = n
		}
	}
	key := cache.Key("clients", strconv.Itoa(months), cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.Clients(months) })
}

// Payments: GET /analytics/payments
func (h *AnalyticsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	key := cache.Key("payments", cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.Payments() })
}

// Deadlines: GET /analytics/deadlines
func (h *AnalyticsHandler) Deadlines(w http.ResponseWriter, r *http.Request) {
	key := cache.Key("deadlines", cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.Deadlines() })
}

// CostSummary: GET /analytics/cost-summary
func (h *AnalyticsHandler) CostSummary(w http.ResponseWriter, r *http.Request) {
	key := cache.Key("cost-summary", cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.CostSummary() })
}

// MonthlyOverview: GET /analytics/monthly-overview?month=2026-01
func (h *AnalyticsHandler) MonthlyOverview(w http.ResponseWriter, r *http.Request) {
	monthStr := r.URL.Query().Get("month")
	month := models.FirstOfMonth(time.Now())
	if monthStr != "" {
		parsed, err := time.Parse("2006-01", monthStr)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_month", nil)
			return
		}
		month = parsed
	}
	key := cache.Key("monthly-overview", month.Format("2006-01"), cache.DateBucket(time.Now()))
	h.cached(w, key, func() (any, error) { return h.Svc.Monthly(month) })
}
