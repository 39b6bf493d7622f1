package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

const (
	// maxVersionRetries bounds optimistic retries when the account moves under us.
	maxVersionRetries = 3
	// maxAdjustment caps a single administrative correction in either direction.
	maxAdjustment = 1_000_000_000
)

type LedgerService struct {
	ledger ports.LedgerRepository
	events eventSink
	logger *slog.Logger
}

func NewLedgerService(ledger ports.LedgerRepository, publisher ports.EventPublisher, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		ledger: ledger,
		events: eventSink{publisher: publisher, logger: logger},
		logger: logger,
	}
}

func (s *LedgerService) Balance(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	if userID == "" {
		return nil, domain.NewMissingRequiredFieldError("userId")
	}
	return s.ledger.GetAccount(ctx, userID)
}

func (s *LedgerService) Entries(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if userID == "" {
		return nil, domain.NewMissingRequiredFieldError("userId")
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListEntries(ctx, userID, limit, offset)
}

// Adjust applies an administrative correction recorded against actor.
// Negative deltas may not overdraw.
func (s *LedgerService) Adjust(ctx context.Context, userID string, delta int64, note, actor string) (*domain.LedgerAccount, *domain.LedgerEntry, error) {
	if delta == 0 {
		return nil, nil, domain.NewValidationError("delta must not be zero")
	}
	if delta > maxAdjustment || delta < -maxAdjustment {
		return nil, nil, domain.NewValidationError(fmt.Sprintf("delta must be between -%d and %d", maxAdjustment, maxAdjustment))
	}
	if note == "" {
		return nil, nil, domain.NewMissingRequiredFieldError("note")
	}
	acct, entry, err := s.apply(ctx, userID, delta, domain.ReasonAdminAdjustment, note, actor)
	if err != nil {
		return nil, nil, err
	}
	if delta > 0 {
		s.events.credited(ctx, entry, actor)
	}
	return acct, entry, nil
}

// Spend debits coins consumed by the user. The user is the recorded actor.
func (s *LedgerService) Spend(ctx context.Context, userID string, coins int64, note string) (*domain.LedgerAccount, *domain.LedgerEntry, error) {
	if coins < 1 {
		return nil, nil, domain.NewInvalidCoinsError(coins)
	}
	return s.apply(ctx, userID, -coins, domain.ReasonUsage, note, userID)
}

func (s *LedgerService) apply(ctx context.Context, userID string, delta int64, reason domain.LedgerReason, note, actor string) (*domain.LedgerAccount, *domain.LedgerEntry, error) {
	if userID == "" {
		return nil, nil, domain.NewMissingRequiredFieldError("userId")
	}

	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		acct, err := s.ledger.GetAccount(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if delta > 0 && acct.Balance > math.MaxInt64-delta {
			return nil, nil, domain.NewValidationError("adjustment would overflow the balance")
		}
		if acct.Balance+delta < 0 {
			return nil, nil, domain.NewInsufficientBalanceError(userID, acct.Balance, -delta)
		}

		entry := domain.NewLedgerEntry(userID, delta, reason, nil, note)
		entry.Actor = actor
		updated, err := s.ledger.ApplyEntry(ctx, entry, acct.Version)
		if err == nil {
			s.logger.Info("ledger entry applied",
				"user_id", userID,
				"delta", delta,
				"reason", reason,
				"balance", updated.Balance,
			)
			return updated, entry, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, nil, err
		}
		s.logger.Info("ledger version moved, retrying", "user_id", userID, "attempt", attempt)
	}
	return nil, nil, domain.NewVersionConflictError(userID)
}
