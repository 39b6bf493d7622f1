package service

import (
	"context"
	"slices"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type PaymentQueryService struct {
	repo ports.PaymentRepository
}

func NewPaymentQueryService(repo ports.PaymentRepository) *PaymentQueryService {
	return &PaymentQueryService{
		repo: repo,
	}
}

func (s *PaymentQueryService) GetPaymentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentAttempt, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PaymentQueryService) GetPaymentByCheckoutRef(ctx context.Context, checkoutRef string) (*domain.PaymentAttempt, error) {
	if checkoutRef == "" {
		return nil, domain.NewMissingRequiredFieldError("checkoutRef")
	}
	return s.repo.FindByCheckoutRef(ctx, checkoutRef)
}

// reviewable are the statuses an administrator acts on. Cancelled and failed
// attempts never appear on the review surface.
var reviewable = []domain.PaymentStatus{domain.StatusCompleted, domain.StatusPendingReview}

// ReviewQueue lists attempts awaiting an administrator. The status filter may
// narrow the queue to completed or pending_review and defaults to both.
func (s *PaymentQueryService) ReviewQueue(ctx context.Context, filter domain.PaymentFilter) ([]*domain.PaymentAttempt, error) {
	if len(filter.Statuses) == 0 {
		filter.Statuses = reviewable
	}
	for _, st := range filter.Statuses {
		if !slices.Contains(reviewable, st) {
			return nil, domain.NewValidationError("status " + string(st) + " is not on the review queue")
		}
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}
