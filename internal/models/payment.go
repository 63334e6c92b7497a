package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment methods.
const (
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodPayPal       = "paypal"
	MethodStripe       = "stripe"
	MethodOther        = "other"
)

// Payment tied to an invoice. Immutable once recorded; creating one is the
// only thing that moves an invoice's amount_paid.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Invoice       Invoice         `gorm:"foreignKey:InvoiceID" json:"-"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        string          `gorm:"size:20;not null" json:"method"`
	PaymentDate   time.Time       `gorm:"autoCreateTime" json:"payment_date"`
	TransactionID string          `gorm:"size:100" json:"transaction_id,omitempty"`
	Notes         string          `json:"notes"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodPayPal, MethodStripe, MethodOther:
		return true
	}
	return false
}
