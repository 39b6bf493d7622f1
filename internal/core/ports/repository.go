package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/google/uuid"
)

// PaymentRepository is the Payment Record Store.
type PaymentRepository interface {
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentAttempt, error)
	FindByCheckoutRef(ctx context.Context, checkoutRef string) (*domain.PaymentAttempt, error)
	List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.PaymentAttempt, error)

	// AttachGatewayRefs records the references the gateway assigned to an accepted push.
	AttachGatewayRefs(ctx context.Context, id uuid.UUID, checkoutRef, merchantRef string) error

	// UpdateStatus moves the attempt to status only if its current status is a legal
	// predecessor. It returns domain.ErrConflict when the guard fails and a
	// PAYMENT_NOT_FOUND error when the attempt does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, update domain.StatusUpdate) (*domain.PaymentAttempt, error)

	// Annotate writes the transaction reference, result details and review reason
	// of update while the attempt is still in status, leaving the status as is.
	// It returns domain.ErrConflict when the attempt has moved on.
	Annotate(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, update domain.StatusUpdate) (*domain.PaymentAttempt, error)

	// ApproveAndCredit performs completed -> approved and, only if that write
	// succeeded, appends the purchase entry and increments the balance in the same
	// atomic unit. It returns domain.ErrConflict when the attempt is not completed.
	ApproveAndCredit(ctx context.Context, id uuid.UUID, approvedAt time.Time, actor string) (*domain.PaymentAttempt, *domain.LedgerEntry, error)

	// FindStalePending returns pending attempts created before cutoff.
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentAttempt, error)

	// DeleteTerminalBefore purges terminal attempts last updated before cutoff.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// LedgerRepository holds balances and the append-only entry log.
type LedgerRepository interface {
	GetAccount(ctx context.Context, userID string) (*domain.LedgerAccount, error)
	ListEntries(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error)

	// ApplyEntry appends entry and moves the balance by entry.Delta, provided the
	// account is still at expectedVersion and the balance stays non-negative.
	ApplyEntry(ctx context.Context, entry *domain.LedgerEntry, expectedVersion int64) (*domain.LedgerAccount, error)
}

// CallbackRepository is the durable webhook inbox.
type CallbackRepository interface {
	Save(ctx context.Context, cb *domain.GatewayCallback) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.GatewayCallback, error)
	FindDue(ctx context.Context, olderThan time.Duration, maxAttempts, limit int) ([]*domain.GatewayCallback, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, status domain.CallbackStatus, note *string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastErr string) error
	MarkDead(ctx context.Context, maxAttempts int) (int64, error)
}
