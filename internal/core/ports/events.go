package ports

import (
	"context"
	"time"
)

// Event types published on payment lifecycle changes.
const (
	EventPaymentCompleted     = "payment.completed"
	EventPaymentCancelled     = "payment.cancelled"
	EventPaymentFailed        = "payment.failed"
	EventPaymentPendingReview = "payment.pending_review"
	EventPaymentApproved      = "payment.approved"
	EventPaymentRejected      = "payment.rejected"
	EventLedgerCredited       = "ledger.credited"
)

type Event struct {
	Type       string         `json:"event_type"`
	PaymentID  string         `json:"payment_id,omitempty"`
	UserID     string         `json:"user_id"`
	Status     string         `json:"status,omitempty"`
	Coins      int64          `json:"coins,omitempty"`
	Source     string         `json:"source,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventPublisher delivers lifecycle events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// RateLimiter bounds how often an identity may start a payment.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
