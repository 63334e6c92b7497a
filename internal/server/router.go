package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/cache"
	"github.com/studiob6/billing-backend/internal/config"
	"github.com/studiob6/billing-backend/internal/handlers"
	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/services"
)

// Server bundles the router together with the services the background jobs
// and CLI need access to.
type Server struct {
	Router    *mux.Router
	Invoices  *services.InvoiceService
	Ledger    *services.LedgerService
	Analytics *services.AnalyticsService
}

// New wires every handler onto a gorilla router.
func New(db *gorm.DB, cfg config.Config) *Server {
	seq := services.Sequencer{
		Prefix:       cfg.InvoicePrefix,
		PeriodFormat: cfg.InvoicePeriodFormat,
		Floor:        cfg.InvoiceNumberFloor,
	}
	invoices := services.NewInvoiceService(db, seq)
	ledger := services.NewLedgerService(db, cfg.BaseCurrency)
	analytics := services.NewAnalyticsService(db)
	analyticsCache := cache.New(cfg.AnalyticsCacheTTL)

	ch := handlers.NewClientHandler(db)
	ph := handlers.NewProjectHandler(db)
	th := handlers.NewToolHandler(db)
	sh := handlers.NewSubscriptionHandler(db, ledger, analytics)
	uh := handlers.NewUsageHandler(ledger)
	selh := handlers.NewSelectionHandler(db, ledger)
	ih := handlers.NewInvoiceHandler(db, invoices)
	ah := handlers.NewAnalyticsHandler(analytics, analyticsCache)

	r := mux.NewRouter()
	r.Use(requestLogging)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "db_unreachable", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/clients", ch.Create).Methods(http.MethodPost)
	api.HandleFunc("/clients", ch.List).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", ch.Get).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", ch.Deactivate).Methods(http.MethodDelete)

	api.HandleFunc("/projects", ph.Create).Methods(http.MethodPost)
	api.HandleFunc("/projects", ph.List).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/status", ph.UpdateStatus).Methods(http.MethodPatch)

	api.HandleFunc("/tools", th.List).Methods(http.MethodGet)

	api.HandleFunc("/selections", selh.Upsert).Methods(http.MethodPost)
	api.HandleFunc("/selections/by-client", selh.ByClient).Methods(http.MethodGet)
	api.HandleFunc("/selections/update-client-tools", selh.UpdateClientTools).Methods(http.MethodPost)

	api.HandleFunc("/subscriptions", sh.Upsert).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions/current-month", sh.CurrentMonth).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/{id}/usage-by-client", sh.UsageByClient).Methods(http.MethodGet)

	api.HandleFunc("/usages", uh.Log).Methods(http.MethodPost)
	api.HandleFunc("/usages/by-client", uh.ByClient).Methods(http.MethodGet)
	api.HandleFunc("/usages/{id}", uh.Update).Methods(http.MethodPatch)

	api.HandleFunc("/invoices", ih.Create).Methods(http.MethodPost)
	api.HandleFunc("/invoices", ih.List).Methods(http.MethodGet)
	api.HandleFunc("/invoices/overdue", ih.Overdue).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/items", ih.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{id}/payments", ih.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{id}/payments", ih.ListPayments).Methods(http.MethodGet)

	api.HandleFunc("/analytics/overview", ah.Overview).Methods(http.MethodGet)
	api.HandleFunc("/analytics/revenue", ah.Revenue).Methods(http.MethodGet)
	api.HandleFunc("/analytics/clients", ah.Clients).Methods(http.MethodGet)
	api.HandleFunc("/analytics/payments", ah.Payments).Methods(http.MethodGet)
	api.HandleFunc("/analytics/deadlines", ah.Deadlines).Methods(http.MethodGet)
	api.HandleFunc("/analytics/cost-summary", ah.CostSummary).Methods(http.MethodGet)
	api.HandleFunc("/analytics/monthly-overview", ah.MonthlyOverview).Methods(http.MethodGet)

	return &Server{
		Router:    r,
		Invoices:  invoices,
		Ledger:    ledger,
		Analytics: analytics,
	}
}
