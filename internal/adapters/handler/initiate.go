package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
)

const maxBodyBytes = 1 << 20

// HandleInitiate starts a coin purchase
// @Summary      Initiate a coin purchase
// @Description  Validates the request, records a pending attempt and sends a push prompt to the payer's phone.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      InitiateRequest   true  "Purchase details"
// @Success      200      {object}  InitiateResponse  "Push accepted"
// @Failure      400      {object}  InitiateResponse  "Invalid input"
// @Failure      429      {object}  InitiateResponse  "Too many attempts"
// @Failure      502      {object}  InitiateResponse  "Gateway refused the push"
// @Router       /api/v1/payments/initiate [post]
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := h.decode(r, &req); err != nil {
		h.respondInitiateError(w, err)
		return
	}

	result, err := h.svc.Initiate.Initiate(r.Context(), service.InitiateCommand{
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		UserName:    req.UserName,
		Phone:       req.Phone,
		Amount:      req.Amount,
		Coins:       req.Coins,
		PackageID:   req.PackageID,
		PackageInfo: req.PackageInfo,
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		h.respondInitiateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InitiateResponse{
		Success:         true,
		CheckoutRef:     result.CheckoutRef,
		MerchantRef:     result.MerchantRef,
		PaymentID:       result.Payment.ID.String(),
		CustomerMessage: result.CustomerMessage,
	})
}

func (h *PaymentHandler) respondInitiateError(w http.ResponseWriter, err error) {
	status, apiErr := mapError(err)
	message := apiErr.Message
	if _, ok := domain.IsGatewayError(err); ok {
		message = service.PushFailureMessage(err)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("payment initiation failed", "error", err)
	}
	writeJSON(w, status, InitiateResponse{
		Success:   false,
		Message:   message,
		ErrorCode: apiErr.Code,
	})
}

// decode reads a JSON body into dst and runs struct validation.
func (h *PaymentHandler) decode(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return domain.NewValidationError("failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.NewValidationError("malformed JSON body: " + err.Error())
	}
	if err := h.validate.Struct(dst); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}
