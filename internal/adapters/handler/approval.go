package handler

import (
	"net/http"
)

type approveResponse struct {
	Payment  PaymentResponse `json:"payment"`
	Credited bool            `json:"credited"`
	EntryID  string          `json:"entryId,omitempty"`
}

type rejectResponse struct {
	Payment PaymentResponse `json:"payment"`
	Changed bool            `json:"changed"`
}

// HandleApprove credits a completed attempt's coins
// @Summary   Approve a completed attempt and credit its coins
// @Tags      admin
// @Produce   json
// @Security  BearerAuth
// @Param     paymentID  path      string       true  "Payment attempt id"
// @Success   200        {object}  APIResponse
// @Failure   404        {object}  APIResponse
// @Failure   409        {object}  APIResponse
// @Router    /api/v1/admin/payments/{paymentID}/approve [post]
func (h *PaymentHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := paymentIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.svc.Approvals.Approve(r.Context(), id, actorFrom(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}

	resp := approveResponse{
		Payment:  toPaymentResponse(result.Payment),
		Credited: result.Credited,
	}
	if result.Entry != nil {
		resp.EntryID = result.Entry.ID.String()
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// HandleReject closes an attempt without crediting
// @Summary   Reject an attempt without crediting
// @Tags      admin
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     paymentID  path      string         true  "Payment attempt id"
// @Param     request    body      RejectRequest  true  "Rejection reason"
// @Success   200        {object}  APIResponse
// @Failure   409        {object}  APIResponse
// @Router    /api/v1/admin/payments/{paymentID}/reject [post]
func (h *PaymentHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	id, err := paymentIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req RejectRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	payment, changed, err := h.svc.Approvals.Reject(r.Context(), id, req.Reason, actorFrom(r.Context()))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rejectResponse{
		Payment: toPaymentResponse(payment),
		Changed: changed,
	})
}
