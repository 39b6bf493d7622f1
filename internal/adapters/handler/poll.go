package handler

import (
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

// HandleStartPolling starts a status polling session. Starting twice is a no-op.
// @Summary   Start a status polling session
// @Tags      payments
// @Produce   json
// @Param     paymentID  path      string       true  "Payment attempt id"
// @Success   200        {object}  APIResponse
// @Failure   404        {object}  APIResponse
// @Router    /api/v1/payments/{paymentID}/poll [post]
func (h *PaymentHandler) HandleStartPolling(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.pollTarget(w, r)
	if !ok {
		return
	}
	if payment.Status != domain.StatusPending {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"started": false,
			"status":  payment.Status,
		})
		return
	}

	started, err := h.svc.Poller.Start(*payment.GatewayCheckoutRef)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"started":     started,
		"checkoutRef": *payment.GatewayCheckoutRef,
		"status":      payment.Status,
	})
}

// HandleCancelPolling stops scheduling further polls for the attempt.
// @Summary   Cancel a status polling session
// @Tags      payments
// @Produce   json
// @Param     paymentID  path      string       true  "Payment attempt id"
// @Success   200        {object}  APIResponse
// @Failure   404        {object}  APIResponse
// @Router    /api/v1/payments/{paymentID}/poll [delete]
func (h *PaymentHandler) HandleCancelPolling(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.pollTarget(w, r)
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled":   h.svc.Poller.Cancel(*payment.GatewayCheckoutRef),
		"checkoutRef": *payment.GatewayCheckoutRef,
	})
}

// pollTarget loads the attempt named in the path. Attempts the gateway never
// accepted have no checkout reference and cannot be polled.
func (h *PaymentHandler) pollTarget(w http.ResponseWriter, r *http.Request) (*domain.PaymentAttempt, bool) {
	id, err := paymentIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return nil, false
	}
	payment, err := h.svc.Query.GetPaymentByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return nil, false
	}
	if payment.GatewayCheckoutRef == nil {
		respondWithError(w, domain.NewValidationError("payment has no gateway checkout reference"))
		return nil, false
	}
	return payment, true
}
