package services

import (
	"errors"
	"fmt"

	"github.com/studiob6/billing-backend/internal/validation"
)

// Conflict errors: the request is well-formed but collides with current
// state. No partial mutation happens.
var (
	ErrInvoiceAlreadyPaid = errors.New("invoice_already_paid")
	ErrOverpayment        = errors.New("payment_exceeds_remaining_balance")
)

// Missing-prerequisite errors.
var (
	ErrNoActiveSubscription = errors.New("no_active_subscription_for_month")
	ErrClientNotFound       = errors.New("client_not_found")
	ErrProjectNotFound      = errors.New("project_not_found")
	ErrToolNotFound         = errors.New("tool_not_found")
	ErrInvoiceNotFound      = errors.New("invoice_not_found")
	ErrUsageNotFound        = errors.New("usage_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)

// ValidationError carries field-level violations back to the caller.
// Rejected before any state mutation.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", map[string]string(e.Violations))
}

func violationsErr(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// AsValidation unwraps a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
