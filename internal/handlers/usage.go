package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/services"
)

type UsageHandler struct {
	Ledger *services.LedgerService
}

func NewUsageHandler(ledger *services.LedgerService) *UsageHandler {
	return &UsageHandler{Ledger: ledger}
}

// Log: POST /usages. Logs a generation against the current month's ledger
// for the tool.
func (h *UsageHandler) Log(w http.ResponseWriter, r *http.Request) {
	var in services.LogUsageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	usage, err := h.Ledger.RecordUsage(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, usage)
}

// Update: PATCH /usages/{id}
func (h *UsageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var in services.UpdateUsageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	usage, err := h.Ledger.UpdateUsage(id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, usage)
}

// ByClient: GET /usages/by-client?client_id=...
func (h *UsageHandler) ByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(r.URL.Query().Get("client_id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_id_required", nil)
		return
	}
	usages, totals, err := h.Ledger.UsageByClient(clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"usages": usages, "totals": totals})
}
