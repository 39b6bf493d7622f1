package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/google/uuid"
)

// ApproveResult reports whether an approve call actually credited the ledger.
type ApproveResult struct {
	Payment  *domain.PaymentAttempt
	Entry    *domain.LedgerEntry
	Credited bool
}

// ApprovalService is the only path that credits coins for a purchase.
type ApprovalService struct {
	repo   ports.PaymentRepository
	events eventSink
	logger *slog.Logger
	now    func() time.Time
}

func NewApprovalService(repo ports.PaymentRepository, publisher ports.EventPublisher, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		repo:   repo,
		events: eventSink{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// Approve moves a completed attempt to approved and credits its coins in one
// atomic unit. Approving an already approved attempt is a no-op with
// Credited=false; approving from any other status is an INVALID_TRANSITION.
func (s *ApprovalService) Approve(ctx context.Context, id uuid.UUID, actor string) (*ApproveResult, error) {
	payment, entry, err := s.repo.ApproveAndCredit(ctx, id, s.now().UTC(), actor)
	if err == nil {
		s.logger.Info("payment approved and credited",
			"payment_id", id,
			"user_id", payment.UserID,
			"coins", entry.Delta,
			"source", actor,
		)
		s.events.statusChanged(ctx, payment, actor)
		s.events.credited(ctx, entry, actor)
		return &ApproveResult{Payment: payment, Entry: entry, Credited: true}, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusApproved {
		s.logger.Info("payment already approved", "payment_id", id, "source", actor)
		return &ApproveResult{Payment: current, Credited: false}, nil
	}
	return nil, domain.NewInvalidTransitionError(current.Status, domain.StatusApproved)
}

// Reject closes a completed or pending_review attempt without crediting.
// It returns changed=false when the attempt was already rejected.
func (s *ApprovalService) Reject(ctx context.Context, id uuid.UUID, reason, actor string) (*domain.PaymentAttempt, bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, false, domain.NewMissingRequiredFieldError("reason")
	}

	now := s.now().UTC()
	payment, err := s.repo.UpdateStatus(ctx, id, domain.StatusRejected, domain.StatusUpdate{
		ReviewReason: &reason,
		ReviewedBy:   &actor,
		RejectedAt:   &now,
	})
	if err == nil {
		s.logger.Info("payment rejected", "payment_id", id, "reason", reason, "source", actor)
		s.events.statusChanged(ctx, payment, actor)
		return payment, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, false, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.Status == domain.StatusRejected {
		s.logger.Info("payment already rejected", "payment_id", id, "source", actor)
		return current, false, nil
	}
	return nil, false, domain.NewInvalidTransitionError(current.Status, domain.StatusRejected)
}
