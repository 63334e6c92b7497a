package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/money"
	"github.com/studiob6/billing-backend/internal/validation"
)

// InvoiceService owns invoice creation, numbering, payment recording and
// the payment-status state machine.
type InvoiceService struct {
	DB  *gorm.DB
	Seq Sequencer
	Now func() time.Time
}

func NewInvoiceService(db *gorm.DB, seq Sequencer) *InvoiceService {
	return &InvoiceService{DB: db, Seq: seq, Now: time.Now}
}

// ComputeStatus derives the payment status from the invoice's amounts and
// due date. Pure; re-run and persisted whenever amount_paid changes and by
// the overdue sweep. Rules, first match wins:
//  1. amount_paid >= total_amount  -> paid
//  2. amount_paid > 0              -> partial
//  3. today past due_date          -> overdue
//  4. otherwise                    -> unpaid
func ComputeStatus(amountPaid, totalAmount decimal.Decimal, dueDate, today time.Time) string {
	switch {
	case amountPaid.GreaterThanOrEqual(totalAmount):
		return models.StatusPaid
	case amountPaid.Sign() > 0:
		return models.StatusPartial
	case dateOnly(today).After(dateOnly(dueDate)):
		return models.StatusOverdue
	default:
		return models.StatusUnpaid
	}
}

type InvoiceItemInput struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceInput struct {
	ProjectID     uuid.UUID          `json:"project_id"`
	ClientID      uuid.UUID          `json:"client_id"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	DepositAmount *decimal.Decimal   `json:"deposit_amount"`
	TVARate       decimal.Decimal    `json:"tva_rate"`
	DueDate       time.Time          `json:"due_date"`
	Notes         string             `json:"notes"`
	Items         []InvoiceItemInput `json:"items"`
}

func (in *CreateInvoiceInput) validate() error {
	v := validation.Violations{}
	if in.ProjectID == uuid.Nil {
		v["project_id"] = "required"
	}
	if in.ClientID == uuid.Nil {
		v["client_id"] = "required"
	}
	validation.NonNegativeAmount("total_amount", in.TotalAmount, v)
	if in.DepositAmount != nil {
		validation.NonNegativeAmount("deposit_amount", *in.DepositAmount, v)
	}
	if in.TVARate.Sign() < 0 || in.TVARate.GreaterThan(decimal.NewFromInt(100)) {
		v["tva_rate"] = "out_of_range"
	}
	if in.DueDate.IsZero() {
		v["due_date"] = "required"
	}
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		validation.MinInt(field+".quantity", it.Quantity, 1, v)
		validation.NonNegativeAmount(field+".unit_price", it.UnitPrice, v)
	}
	return violationsErr(v)
}

// Create validates, assigns the invoice number and persists invoice plus
// items as one transaction. When no explicit total is supplied the item sum
// becomes the total.
func (s *InvoiceService) Create(in CreateInvoiceInput) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	today := s.Now()

	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Client{}, in.ClientID, ErrClientNotFound); err != nil {
			return err
		}
		if err := ensureExists(tx, &models.Project{}, in.ProjectID, ErrProjectNotFound); err != nil {
			return err
		}

		number, err := s.Seq.Next(tx, today)
		if err != nil {
			return err
		}

		total := in.TotalAmount
		itemSum := decimal.Zero
		items := make([]models.InvoiceItem, 0, len(in.Items))
		for _, it := range in.Items {
			line := models.InvoiceItem{
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   money.Amount(it.UnitPrice),
			}
			itemSum = itemSum.Add(money.MulInt(line.UnitPrice, line.Quantity))
			items = append(items, line)
		}
		if total.Sign() == 0 && len(items) > 0 {
			total = itemSum
		}

		inv = models.Invoice{
			InvoiceNumber: number,
			ProjectID:     in.ProjectID,
			ClientID:      in.ClientID,
			TotalAmount:   money.Amount(total),
			AmountPaid:    decimal.Zero,
			DepositAmount: in.DepositAmount,
			TVARate:       in.TVARate,
			DueDate:       dateOnly(in.DueDate),
			IssuedDate:    dateOnly(today),
			Notes:         in.Notes,
			Items:         items,
		}
		inv.PaymentStatus = ComputeStatus(inv.AmountPaid, inv.TotalAmount, inv.DueDate, today)
		return tx.Create(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// AddItem appends a line item and re-derives the invoice total from the
// item sum, atomically.
func (s *InvoiceService) AddItem(invoiceID uuid.UUID, in InvoiceItemInput) (*models.Invoice, error) {
	v := validation.Violations{}
	validation.MinInt("quantity", in.Quantity, 1, v)
	validation.NonNegativeAmount("unit_price", in.UnitPrice, v)
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&inv, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		item := models.InvoiceItem{
			InvoiceID:   invoiceID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   money.Amount(in.UnitPrice),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		var total decimal.Decimal
		if err := tx.Model(&models.InvoiceItem{}).
			Where("invoice_id = ?", invoiceID).
			Select("COALESCE(SUM(total_price), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		inv.TotalAmount = total
		inv.PaymentStatus = ComputeStatus(inv.AmountPaid, inv.TotalAmount, inv.DueDate, s.Now())
		updates := map[string]any{"total_amount": inv.TotalAmount, "payment_status": inv.PaymentStatus}
		if err := tx.Model(&inv).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Items").First(&inv, "id = ?", invoiceID).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type RecordPaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes"`
}

// RecordPayment inserts a payment and recomputes the owning invoice's
// amount_paid and status inside one transaction scoped to that invoice.
// Rejects payments against paid invoices and payments above the remaining
// balance, with no partial mutation.
func (s *InvoiceService) RecordPayment(invoiceID uuid.UUID, in RecordPaymentInput) (*models.Invoice, error) {
	v := validation.Violations{}
	validation.PositiveAmount("amount", in.Amount, v)
	if !models.ValidMethod(in.Method) {
		v["method"] = "unknown_value"
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&inv, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if inv.PaymentStatus == models.StatusPaid {
			return ErrInvoiceAlreadyPaid
		}
		if in.Amount.GreaterThan(inv.AmountRemaining()) {
			return ErrOverpayment
		}
		payment := models.Payment{
			InvoiceID:     invoiceID,
			Amount:        money.Amount(in.Amount),
			Method:        in.Method,
			TransactionID: in.TransactionID,
			Notes:         in.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		// amount_paid is always the payment sum, computed in-transaction.
		var paid decimal.Decimal
		if err := tx.Model(&models.Payment{}).
			Where("invoice_id = ?", invoiceID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}
		inv.AmountPaid = paid
		inv.PaymentStatus = ComputeStatus(inv.AmountPaid, inv.TotalAmount, inv.DueDate, s.Now())
		return tx.Model(&inv).Updates(map[string]any{
			"amount_paid":    inv.AmountPaid,
			"payment_status": inv.PaymentStatus,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// SweepOverdue re-evaluates non-paid invoices against today and marks the
// ones past due with no payment as overdue. A single relative UPDATE, so
// running it twice changes nothing the second time.
func (s *InvoiceService) SweepOverdue(today time.Time) (int64, error) {
	res := s.DB.Model(&models.Invoice{}).
		Where("payment_status = ? AND due_date < ?", models.StatusUnpaid, dateOnly(today)).
		Update("payment_status", models.StatusOverdue)
	return res.RowsAffected, res.Error
}

// RenumberChange describes one invoice renamed by Renumber.
type RenumberChange struct {
	InvoiceID uuid.UUID
	Old       string
	New       string
}

// Renumber migrates invoices whose numbers do not carry the given prefix to
// <prefix><N>, in issuance-date order, continuing after the highest existing
// N under that prefix (or startFrom when > 0). Offline administrative batch;
// one transaction, dry-run supported.
func (s *InvoiceService) Renumber(prefix string, startFrom int, dryRun bool) ([]RenumberChange, error) {
	var olds []models.Invoice
	if err := s.DB.
		Where("invoice_number NOT LIKE ?", prefix+"%").
		Order("issued_date asc, created_at asc").
		Find(&olds).Error; err != nil {
		return nil, err
	}
	if len(olds) == 0 {
		return nil, nil
	}

	current := 0
	if startFrom > 0 {
		current = startFrom - 1
	} else {
		var existing []string
		if err := s.DB.Model(&models.Invoice{}).
			Where("invoice_number LIKE ?", prefix+"%").
			Pluck("invoice_number", &existing).Error; err != nil {
			return nil, err
		}
		for _, num := range existing {
			if n, ok := parseSuffix(num, prefix); ok && n > current {
				current = n
			}
		}
	}

	changes := make([]RenumberChange, 0, len(olds))
	for _, inv := range olds {
		current++
		changes = append(changes, RenumberChange{
			InvoiceID: inv.ID,
			Old:       inv.InvoiceNumber,
			New:       fmt.Sprintf("%s%d", prefix, current),
		})
	}
	if dryRun {
		return changes, nil
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			if err := tx.Model(&models.Invoice{}).
				Where("id = ?", c.InvoiceID).
				Update("invoice_number", c.New).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func ensureExists(tx *gorm.DB, model any, id uuid.UUID, notFound error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
