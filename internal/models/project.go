package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project statuses
const (
	ProjectPending    = "pending"
	ProjectInProgress = "in_progress"
	ProjectReview     = "review"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// Service types shared by projects and tools.
const (
	ServiceImage = "image"
	ServiceVideo = "video"
	ServiceAudio = "audio"
	ServiceBoth  = "both"
)

type Project struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_projects_client_status" json:"client_id"`
	Client      Client     `gorm:"foreignKey:ClientID" json:"-"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	ServiceType string     `gorm:"not null" json:"service_type"`
	Status      string     `gorm:"not null;default:'pending';index:idx_projects_client_status" json:"status"`
	Deadline    time.Time  `gorm:"not null;index" json:"deadline"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsOverdue reports whether an unfinished project is past its deadline.
func (p *Project) IsOverdue(now time.Time) bool {
	if p.Status == ProjectCompleted || p.Status == ProjectCancelled {
		return false
	}
	return now.After(p.Deadline)
}
