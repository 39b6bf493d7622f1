package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

// Observation sources, recorded in result details, logs and events.
const (
	SourceWebhook  = "webhook"
	SourcePoller   = "poller"
	SourceSweeper  = "sweeper"
	SourceAdmin    = "admin"
	SourceInitiate = "initiate"
)

var statusEvents = map[domain.PaymentStatus]string{
	domain.StatusCompleted:     ports.EventPaymentCompleted,
	domain.StatusCancelled:     ports.EventPaymentCancelled,
	domain.StatusFailed:        ports.EventPaymentFailed,
	domain.StatusPendingReview: ports.EventPaymentPendingReview,
	domain.StatusApproved:      ports.EventPaymentApproved,
	domain.StatusRejected:      ports.EventPaymentRejected,
}

// eventSink publishes lifecycle events best effort. A nil publisher disables publishing.
type eventSink struct {
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func (e eventSink) statusChanged(ctx context.Context, p *domain.PaymentAttempt, source string) {
	typ, ok := statusEvents[p.Status]
	if !ok {
		return
	}
	e.publish(ctx, ports.Event{
		Type:       typ,
		PaymentID:  p.ID.String(),
		UserID:     p.UserID,
		Status:     string(p.Status),
		Coins:      p.Coins,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	})
}

func (e eventSink) credited(ctx context.Context, entry *domain.LedgerEntry, source string) {
	evt := ports.Event{
		Type:       ports.EventLedgerCredited,
		UserID:     entry.UserID,
		Coins:      entry.Delta,
		Source:     source,
		Data:       map[string]any{"entry_id": entry.ID.String(), "reason": string(entry.Reason)},
		OccurredAt: entry.CreatedAt,
	}
	if entry.RelatedPaymentID != nil {
		evt.PaymentID = entry.RelatedPaymentID.String()
	}
	e.publish(ctx, evt)
}

func (e eventSink) publish(ctx context.Context, evt ports.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.logger.Warn("failed to publish event",
			"event_type", evt.Type,
			"payment_id", evt.PaymentID,
			"error", err,
		)
	}
}
