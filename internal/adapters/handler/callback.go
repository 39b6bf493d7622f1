package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/gateway"
)

var callbackAccepted = CallbackAck{ResultCode: 0, ResultDesc: "Success"}

// HandleCallback stores the gateway's push result and acknowledges it. Every
// request is acknowledged; processing happens on the worker pool.
// @Summary      Gateway push-result callback
// @Description  Always acknowledged; processing happens after the response.
// @Tags         callbacks
// @Accept       json
// @Produce      json
// @Success      200  {object}  CallbackAck
// @Router       /api/v1/callbacks/mpesa [post]
func (h *PaymentHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	defer writeJSON(w, http.StatusOK, callbackAccepted)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read gateway callback", "error", err)
		return
	}

	cb, err := gateway.ParseCallback(payload)
	if err != nil {
		h.logger.Warn("discarding unparseable gateway callback", "error", err, "bytes", len(payload))
		return
	}

	// The row must outlive a gateway that hangs up early.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.ackTimeout)
	defer cancel()

	record, err := h.svc.Callbacks.Receive(ctx, cb, payload)
	if err != nil {
		// the sweeper re-queries attempts that never settle
		h.logger.Error("failed to store gateway callback",
			"checkout_ref", cb.CheckoutRef,
			"error", err,
		)
		return
	}

	if !h.svc.Dispatch.Submit(record) {
		h.logger.Info("callback left for retry worker", "callback_id", record.ID, "checkout_ref", record.CheckoutRef)
	}
}
