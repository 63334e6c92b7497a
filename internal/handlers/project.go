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
	"github.com/studiob6/billing-backend/internal/validation"
)

type ProjectHandler struct {
	DB *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

var projectStatuses = []string{
	models.ProjectPending,
	models.ProjectInProgress,
	models.ProjectReview,
	models.ProjectCompleted,
	models.ProjectCancelled,
}

var serviceTypes = []string{
	models.ServiceImage,
	models.ServiceVideo,
	models.ServiceAudio,
	models.ServiceBoth,
}

// Create: POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ClientID    uuid.UUID `json:"client_id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		ServiceType string    `json:"service_type"`
		Deadline    time.Time `json:"deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	if in.ClientID == uuid.Nil {
		v["client_id"] = "required"
	}
	if in.Deadline.IsZero() {
		v["deadline"] = "required"
	}
	if in.ServiceType != "" {
		validation.OneOf("service_type", in.ServiceType, serviceTypes, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, "id = ?", in.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeServiceError(w, services.ErrClientNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}
	if in.ServiceType == "" {
		in.ServiceType = models.ServiceImage
	}
	project := models.Project{
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		ServiceType: in.ServiceType,
		Status:      models.ProjectPending,
		Deadline:    in.Deadline,
	}
	if err := h.DB.Create(&project).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

// List: GET /projects?status=in_progress&client_id=...
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.DB.Model(&models.Project{}).Order("created_at desc")
	if s := r.URL.Query().Get("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	if c := r.URL.Query().Get("client_id"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_client_id", nil)
			return
		}
		q = q.Where("client_id = ?", id)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": projects})
}

// UpdateStatus: PATCH /projects/{id}/status. Moving to completed stamps
// completed_at so on-time delivery can be measured later.
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.OneOf("status", in.Status, projectStatuses, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var project models.Project
	if err := h.DB.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeServiceError(w, services.ErrProjectNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}
	updates := map[string]any{"status": in.Status}
	if in.Status == models.ProjectCompleted && project.CompletedAt == nil {
		now := time.Now()
		updates["completed_at"] = &now
	}
	if err := h.DB.Model(&project).Updates(updates).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}
