package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingLedger reports a version conflict for the first n writes.
type racingLedger struct {
	ports.LedgerRepository
	conflicts int
}

func (r *racingLedger) ApplyEntry(ctx context.Context, entry *domain.LedgerEntry, expectedVersion int64) (*domain.LedgerAccount, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return nil, domain.ErrConflict
	}
	return r.LedgerRepository.ApplyEntry(ctx, entry, expectedVersion)
}

func TestLedgerService_AdjustAndSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewLedgerService(f.ledger, f.events, discardLogger())

	acct, entry, err := svc.Adjust(ctx, "user-9", 300, "goodwill credit", "ops-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), acct.Balance)
	assert.Equal(t, domain.ReasonAdminAdjustment, entry.Reason)
	assert.Equal(t, "ops-1", entry.Actor)

	acct, entry, err = svc.Spend(ctx, "user-9", 120, "bid placed")
	require.NoError(t, err)
	assert.Equal(t, int64(180), acct.Balance)
	assert.Equal(t, int64(-120), entry.Delta)
	assert.Equal(t, domain.ReasonUsage, entry.Reason)
	assert.Equal(t, "user-9", entry.Actor)

	entries, err := svc.Entries(ctx, "user-9", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ReasonUsage, entries[0].Reason, "newest first")
	assert.Equal(t, "ops-1", entries[1].Actor)
	assert.Equal(t, []string{ports.EventLedgerCredited}, f.events.types())
}

func TestLedgerService_SpendRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewLedgerService(f.ledger, nil, discardLogger())

	_, _, err := svc.Adjust(ctx, "user-9", 50, "seed", "ops-1")
	require.NoError(t, err)

	_, _, err = svc.Spend(ctx, "user-9", 51, "too much")

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInsufficientBalance))
	acct, err := svc.Balance(ctx, "user-9")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acct.Balance)
}

func TestLedgerService_RetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t)
	ledger := &racingLedger{LedgerRepository: f.ledger, conflicts: 2}
	svc := service.NewLedgerService(ledger, nil, discardLogger())

	acct, _, err := svc.Adjust(context.Background(), "user-9", 10, "retry me", "ops-1")

	require.NoError(t, err)
	assert.Equal(t, int64(10), acct.Balance)
}

func TestLedgerService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	ledger := &racingLedger{LedgerRepository: f.ledger, conflicts: 10}
	svc := service.NewLedgerService(ledger, nil, discardLogger())

	_, _, err := svc.Adjust(context.Background(), "user-9", 10, "retry me", "ops-1")

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeVersionConflict))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLedgerService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := service.NewLedgerService(f.ledger, nil, discardLogger())
	ctx := context.Background()

	_, _, err := svc.Adjust(ctx, "user-9", 0, "nothing", "ops-1")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))

	_, _, err = svc.Adjust(ctx, "user-9", 5, "", "ops-1")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))

	for _, delta := range []int64{1_000_000_001, -1_000_000_001, math.MaxInt64, math.MinInt64} {
		_, _, err = svc.Adjust(ctx, "user-9", delta, "fat finger", "ops-1")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation), "delta %d", delta)
	}

	_, _, err = svc.Spend(ctx, "user-9", 0, "")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidCoins))

	_, err = svc.Balance(ctx, "")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))
}

func TestLedgerService_AdjustCannotOverflowBalance(t *testing.T) {
	f := newFixture(t)
	svc := service.NewLedgerService(f.ledger, nil, discardLogger())
	ctx := context.Background()

	_, err := f.ledger.ApplyEntry(ctx, domain.NewLedgerEntry("user-9", math.MaxInt64-5, domain.ReasonAdminAdjustment, nil, "seed"), 0)
	require.NoError(t, err)

	_, _, err = svc.Adjust(ctx, "user-9", 10, "top up", "ops-1")

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	acct, err := svc.Balance(ctx, "user-9")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-5), acct.Balance)
}
