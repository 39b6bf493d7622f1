package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

const (
	callbackRetryBase = 30 * time.Second
	callbackRetryMax  = 30 * time.Minute
)

// CallbackProcessor is the deferred half of the webhook receiver. Callbacks are
// stored in the inbox first, then processed, and re-driven on internal failure.
type CallbackProcessor struct {
	repo       ports.PaymentRepository
	callbacks  ports.CallbackRepository
	settlement *Settlement
	logger     *slog.Logger
	now        func() time.Time
}

func NewCallbackProcessor(
	repo ports.PaymentRepository,
	callbacks ports.CallbackRepository,
	settlement *Settlement,
	logger *slog.Logger,
) *CallbackProcessor {
	return &CallbackProcessor{
		repo:       repo,
		callbacks:  callbacks,
		settlement: settlement,
		logger:     logger,
		now:        time.Now,
	}
}

// Receive records a parsed callback in the inbox.
func (c *CallbackProcessor) Receive(ctx context.Context, cb domain.STKCallback, payload []byte) (*domain.GatewayCallback, error) {
	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		raw = nil
	}
	record := domain.NewGatewayCallback(cb, raw)
	if err := c.callbacks.Save(ctx, record); err != nil {
		return nil, err
	}
	c.logger.Info("gateway callback received",
		"callback_id", record.ID,
		"checkout_ref", record.CheckoutRef,
		"result_code", record.ResultCode,
	)
	return record, nil
}

// Handle processes a stored callback and schedules a retry when processing
// fails for a reason other than the attempt being unknown or already settled.
func (c *CallbackProcessor) Handle(ctx context.Context, cb *domain.GatewayCallback) {
	err := c.Process(ctx, cb)
	if err == nil {
		return
	}

	next := c.now().UTC().Add(retryBackoff(cb.AttemptCount))
	c.logger.Error("gateway callback processing failed",
		"callback_id", cb.ID,
		"checkout_ref", cb.CheckoutRef,
		"attempt", cb.AttemptCount+1,
		"next_retry_at", next,
		"error", err,
	)
	if err := c.callbacks.ScheduleRetry(ctx, cb.ID, next, err.Error()); err != nil {
		c.logger.Error("failed to schedule callback retry", "callback_id", cb.ID, "error", err)
	}
}

// Process applies a stored callback. It is idempotent: the gateway resends
// callbacks and the retry worker re-drives them.
func (c *CallbackProcessor) Process(ctx context.Context, cb *domain.GatewayCallback) error {
	payment, err := c.repo.FindByCheckoutRef(ctx, cb.CheckoutRef)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			c.logger.Warn("discarding callback for unknown checkout reference",
				"callback_id", cb.ID,
				"checkout_ref", cb.CheckoutRef,
			)
			return c.finish(ctx, cb, domain.CallbackDiscarded, "no payment attempt for checkout reference")
		}
		return err
	}

	obs := Observation{
		ResultCode: cb.ResultCode,
		ResultDesc: cb.ResultDesc,
		Metadata:   cb.Metadata,
		Source:     SourceWebhook,
	}

	if payment.Status == domain.StatusPendingReview {
		recorded, err := c.settlement.RecordLateResult(ctx, payment, obs)
		if err != nil {
			return err
		}
		if recorded {
			return c.finish(ctx, cb, domain.CallbackProcessed, "late result recorded on pending_review attempt")
		}
	}
	if payment.Status != domain.StatusPending {
		return c.finish(ctx, cb, domain.CallbackProcessed, "attempt already "+string(payment.Status))
	}

	applied, err := c.settlement.Apply(ctx, payment.ID, obs)
	if err != nil {
		return err
	}

	note := "applied"
	switch {
	case domain.ClassifyResultCode(cb.ResultCode) == domain.OutcomeInconclusive:
		note = "inconclusive result code " + cb.ResultCode
	case !applied:
		note = "already handled"
	}
	return c.finish(ctx, cb, domain.CallbackProcessed, note)
}

func (c *CallbackProcessor) finish(ctx context.Context, cb *domain.GatewayCallback, status domain.CallbackStatus, note string) error {
	return c.callbacks.MarkProcessed(ctx, cb.ID, status, &note)
}

// retryBackoff doubles from callbackRetryBase per failed attempt, capped at callbackRetryMax.
func retryBackoff(attempts int) time.Duration {
	if attempts > 10 {
		return callbackRetryMax
	}
	d := callbackRetryBase << attempts
	if d > callbackRetryMax {
		return callbackRetryMax
	}
	return d
}
