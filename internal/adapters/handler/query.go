package handler

import (
	"net/http"
	"strings"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/oapi-codegen/runtime"
)

// HandleGetPayment returns one payment attempt
// @Summary   Get a payment attempt
// @Tags      payments
// @Produce   json
// @Param     paymentID  path      string       true  "Payment attempt id"
// @Success   200        {object}  APIResponse
// @Failure   404        {object}  APIResponse
// @Router    /api/v1/payments/{paymentID} [get]
func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := paymentIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	payment, err := h.svc.Query.GetPaymentByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// HandleGatewayStatus asks the gateway directly, without touching the record.
// @Summary   Query the gateway for a checkout reference
// @Tags      payments
// @Produce   json
// @Param     checkoutRef  path      string       true  "Gateway checkout reference"
// @Success   200          {object}  APIResponse
// @Failure   502          {object}  APIResponse
// @Router    /api/v1/payments/status/{checkoutRef} [get]
func (h *PaymentHandler) HandleGatewayStatus(w http.ResponseWriter, r *http.Request) {
	checkoutRef := strings.TrimSpace(r.PathValue("checkoutRef"))
	if checkoutRef == "" {
		respondWithError(w, domain.NewMissingRequiredFieldError("checkoutRef"))
		return
	}

	result, err := h.svc.Gateway.QueryStatus(r.Context(), checkoutRef)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"checkoutRef": checkoutRef,
		"outcome":     domain.ClassifyResultCode(result.ResultCode).String(),
		"result":      result,
	})
}

// HandleReviewQueue lists attempts awaiting a decision
// @Summary   List attempts awaiting review
// @Tags      admin
// @Produce   json
// @Security  BearerAuth
// @Param     status  query     []string     false  "completed and/or pending_review"  collectionFormat(csv)
// @Param     userId  query     string       false  "Restrict to one user"
// @Param     limit   query     int          false  "Page size"
// @Param     offset  query     int          false  "Page offset"
// @Success   200     {object}  APIResponse
// @Failure   401     {object}  APIResponse
// @Router    /api/v1/admin/payments [get]
func (h *PaymentHandler) HandleReviewQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	if err := runtime.BindQueryParameter("form", false, false, "status", r.URL.Query(), &statuses); err != nil {
		respondWithError(w, domain.NewValidationError("invalid status: "+err.Error()))
		return
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	filter := domain.PaymentFilter{
		UserID: r.URL.Query().Get("userId"),
		Limit:  limit,
		Offset: offset,
	}
	for _, s := range statuses {
		filter.Statuses = append(filter.Statuses, domain.PaymentStatus(strings.TrimSpace(s)))
	}

	payments, err := h.svc.Query.ReviewQueue(r.Context(), filter)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toPaymentResponses(payments))
}
