package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/google/uuid"
)

// Observation is one gateway report about a push, from any channel.
type Observation struct {
	ResultCode string
	ResultDesc string
	Metadata   map[string]any
	Source     string
}

// Settlement applies observations to pending attempts. The webhook, the poller
// and the sweeper all write through it, so they race only on the guarded update.
type Settlement struct {
	repo        ports.PaymentRepository
	approvals   *ApprovalService
	autoApprove bool
	events      eventSink
	logger      *slog.Logger
	now         func() time.Time
}

func NewSettlement(
	repo ports.PaymentRepository,
	approvals *ApprovalService,
	autoApprove bool,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *Settlement {
	return &Settlement{
		repo:        repo,
		approvals:   approvals,
		autoApprove: autoApprove,
		events:      eventSink{publisher: publisher, logger: logger},
		logger:      logger,
		now:         time.Now,
	}
}

// Apply performs the pending -> completed|cancelled|failed transition an
// observation calls for. It returns applied=false for inconclusive observations
// and when another actor already moved the attempt.
func (s *Settlement) Apply(ctx context.Context, id uuid.UUID, obs Observation) (bool, error) {
	outcome := domain.ClassifyResultCode(obs.ResultCode)
	target, conclusive := outcome.TargetStatus()
	if !conclusive {
		return false, nil
	}

	now := s.now().UTC()
	update := domain.StatusUpdate{
		ResultDetails: domain.ResultDetails{
			ResultCode: obs.ResultCode,
			ResultDesc: obs.ResultDesc,
			Source:     obs.Source,
			Metadata:   obs.Metadata,
		}.JSON(),
	}
	if target == domain.StatusCompleted {
		update.CompletedAt = &now
		if receipt := domain.ReceiptFrom(obs.Metadata); receipt != "" {
			update.TransactionRef = &receipt
		}
	}

	payment, applied, err := s.transition(ctx, id, target, update, obs.Source)
	if err != nil || !applied {
		return false, err
	}

	// The actor that completed the attempt is the one that auto-approves it.
	if target == domain.StatusCompleted && s.autoApprove {
		if _, err := s.approvals.Approve(ctx, payment.ID, obs.Source); err != nil {
			s.logger.Error("auto-approve failed, attempt left for review",
				"payment_id", payment.ID,
				"source", obs.Source,
				"error", err,
			)
		}
	}
	return true, nil
}

// RecordLateResult keeps a conclusive observation that arrives after the
// attempt was parked for review. The status is left for the operator; the
// result details, the receipt and a note in the review reason are written.
func (s *Settlement) RecordLateResult(ctx context.Context, payment *domain.PaymentAttempt, obs Observation) (bool, error) {
	outcome := domain.ClassifyResultCode(obs.ResultCode)
	target, conclusive := outcome.TargetStatus()
	if !conclusive {
		return false, nil
	}

	reason := fmt.Sprintf("gateway reported %s after review was requested (code %s)", target, obs.ResultCode)
	update := domain.StatusUpdate{
		ResultDetails: domain.ResultDetails{
			ResultCode: obs.ResultCode,
			ResultDesc: obs.ResultDesc,
			Source:     obs.Source,
			Metadata:   obs.Metadata,
		}.JSON(),
	}
	if target == domain.StatusCompleted {
		if receipt := domain.ReceiptFrom(obs.Metadata); receipt != "" {
			update.TransactionRef = &receipt
			reason += ": receipt " + receipt
		}
	}
	if payment.ReviewReason != nil && *payment.ReviewReason != "" {
		reason = *payment.ReviewReason + "; " + reason
	}
	update.ReviewReason = &reason

	_, err := s.repo.Annotate(ctx, payment.ID, domain.StatusPendingReview, update)
	if errors.Is(err, domain.ErrConflict) {
		s.logger.Info("late result skipped, attempt already reviewed", "payment_id", payment.ID, "source", obs.Source)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Warn("late gateway result recorded on attempt awaiting review",
		"payment_id", payment.ID,
		"result_code", obs.ResultCode,
		"source", obs.Source,
	)
	return true, nil
}

// MarkPendingReview parks an attempt whose outcome could not be determined.
func (s *Settlement) MarkPendingReview(ctx context.Context, id uuid.UUID, reason, source string) (bool, error) {
	_, applied, err := s.transition(ctx, id, domain.StatusPendingReview, domain.StatusUpdate{
		ReviewReason: &reason,
		ResultDetails: domain.ResultDetails{
			ResultDesc: reason,
			Source:     source,
		}.JSON(),
	}, source)
	return applied, err
}

// MarkFailed records a push the gateway never accepted.
func (s *Settlement) MarkFailed(ctx context.Context, id uuid.UUID, code, desc, source string) (bool, error) {
	_, applied, err := s.transition(ctx, id, domain.StatusFailed, domain.StatusUpdate{
		ResultDetails: domain.ResultDetails{
			ResultCode: code,
			ResultDesc: desc,
			Source:     source,
		}.JSON(),
	}, source)
	return applied, err
}

func (s *Settlement) transition(
	ctx context.Context,
	id uuid.UUID,
	target domain.PaymentStatus,
	update domain.StatusUpdate,
	source string,
) (*domain.PaymentAttempt, bool, error) {
	payment, err := s.repo.UpdateStatus(ctx, id, target, update)
	if errors.Is(err, domain.ErrConflict) {
		s.logger.Info("payment already handled",
			"payment_id", id,
			"target_status", target,
			"source", source,
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("payment status updated",
		"payment_id", id,
		"status", target,
		"source", source,
	)
	s.events.statusChanged(ctx, payment, source)
	return payment, true, nil
}
