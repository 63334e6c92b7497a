package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/studiob6/billing-backend/internal/httpx"
	"github.com/studiob6/billing-backend/internal/services"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400 with field detail, conflicts 409, missing prerequisites
// 404, everything else 500 with an opaque body and full detail logged
// server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	if ve, ok := services.AsValidation(err); ok {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
		return
	}
	switch {
	case errors.Is(err, services.ErrInvoiceAlreadyPaid),
		errors.Is(err, services.ErrOverpayment):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrNoActiveSubscription),
		errors.Is(err, services.ErrClientNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrToolNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrUsageNotFound),
		errors.Is(err, services.ErrSubscriptionNotFound):
		httpx.JSONError(w, http.StatusNotFound, err.Error(), nil)
	default:
		logrus.WithError(err).Error("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
