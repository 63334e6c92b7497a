package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
	"github.com/studiob6/billing-backend/internal/validation"
)

// ClientHandler is thin CRUD plumbing around the client table. Deletion is
// always a soft deactivation.
type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db}
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client := models.Client{Name: in.Name, Email: in.Email, Phone: in.Phone, Company: in.Company, Notes: in.Notes, IsActive: true}
	if err := h.DB.Create(&client).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// List: GET /clients?active=1
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Model(&models.Client{}).Order("created_at desc")
	if r.URL.Query().Get("active") != "" {
		q = q.Where("is_active = ?", true)
	}
	var clients []models.Client
	if err := q.Find(&clients).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients})
}

// Get: GET /clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeServiceError(w, services.ErrClientNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Deactivate: DELETE /clients/{id}. Clears the active flag, keeping all
// history attached.
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Model(&models.Client{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		writeServiceError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeServiceError(w, services.ErrClientNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deactivated": id})
}
