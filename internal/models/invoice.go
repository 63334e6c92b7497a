package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/money"
)

// Invoice payment statuses. The value is always derived from
// amount_paid/total_amount/due_date (see services.ComputeStatus), never
// written directly by callers.
const (
	StatusUnpaid  = "unpaid"
	StatusPartial = "partial"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string    `gorm:"size:50;not null;uniqueIndex" json:"invoice_number"`
	ProjectID     uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project       Project   `gorm:"foreignKey:ProjectID" json:"-"`
	ClientID      uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client        Client    `gorm:"foreignKey:ClientID" json:"-"`

	TotalAmount   decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"amount_paid"`
	DepositAmount *decimal.Decimal `gorm:"type:decimal(10,2)" json:"deposit_amount,omitempty"`
	TVARate       decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0" json:"tva_rate"`

	PaymentStatus string    `gorm:"size:20;not null;default:'unpaid';index" json:"payment_status"`
	DueDate       time.Time `gorm:"type:date;not null;index" json:"due_date"`
	IssuedDate    time.Time `gorm:"type:date;not null" json:"issued_date"`
	Notes         string    `json:"notes"`

	Items     []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AmountRemaining is the balance still owed.
func (i *Invoice) AmountRemaining() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
}

func (it *InvoiceItem) BeforeCreate(*gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps total_price = quantity * unit_price on every write;
// the column is never independently settable.
func (it *InvoiceItem) BeforeSave(*gorm.DB) error {
	it.TotalPrice = money.MulInt(it.UnitPrice, it.Quantity)
	return nil
}
