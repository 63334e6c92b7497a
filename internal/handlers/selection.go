package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
)

type SelectionHandler struct {
	DB     *gorm.DB
	Ledger *services.LedgerService
}

func NewSelectionHandler(db *gorm.DB, ledger *services.LedgerService) *SelectionHandler {
	return &SelectionHandler{DB: db, Ledger: ledger}
}

// Upsert: POST /selections. Create-or-update keyed on (client, tool).
func (h *SelectionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in services.UpsertSelectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	sel, err := h.Ledger.UpsertSelection(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sel)
}

// ByClient: GET /selections/by-client?client_id=...
func (h *SelectionHandler) ByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(r.URL.Query().Get("client_id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_id_required", nil)
		return
	}
	var sels []models.ClientServiceSelection
	if err := h.DB.Preload("Tool").
		Where("client_id = ? AND is_active = ?", clientID, true).
		Find(&sels).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": sels})
}

// UpdateClientTools: POST /selections/update-client-tools. Replaces a
// client's active tool set in one call.
func (h *SelectionHandler) UpdateClientTools(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ClientID uuid.UUID   `json:"client_id"`
		ToolIDs  []uuid.UUID `json:"tool_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	sels, err := h.Ledger.SetClientTools(in.ClientID, in.ToolIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": sels})
}
