package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentAttempt(t *testing.T) {
	t.Run("creates pending attempt", func(t *testing.T) {
		p, err := domain.NewPaymentAttempt("user-1", "u@example.com", "User", "254712345678", 100, 6050, "pkg", "6000 + 50")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, p.Status)
		assert.Equal(t, int64(6050), p.Coins)
		assert.Equal(t, domain.MethodMobileMoney, p.PaymentMethod)
		assert.NotZero(t, p.ID)
		assert.NotZero(t, p.CreatedAt)
		assert.Nil(t, p.GatewayCheckoutRef)
	})

	t.Run("rejects missing user", func(t *testing.T) {
		_, err := domain.NewPaymentAttempt("", "", "", "254712345678", 100, 10, "", "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := domain.NewPaymentAttempt("user-1", "", "", "254712345678", 0, 10, "", "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
	})

	t.Run("rejects zero coins", func(t *testing.T) {
		_, err := domain.NewPaymentAttempt("user-1", "", "", "254712345678", 10, 0, "", "")
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidCoins))
	})
}

func TestStateMachine(t *testing.T) {
	all := []domain.PaymentStatus{
		domain.StatusPending, domain.StatusCompleted, domain.StatusCancelled, domain.StatusFailed,
		domain.StatusPendingReview, domain.StatusApproved, domain.StatusRejected,
	}
	legal := map[[2]domain.PaymentStatus]bool{
		{domain.StatusPending, domain.StatusCompleted}:       true,
		{domain.StatusPending, domain.StatusCancelled}:       true,
		{domain.StatusPending, domain.StatusFailed}:          true,
		{domain.StatusPending, domain.StatusPendingReview}:   true,
		{domain.StatusCompleted, domain.StatusApproved}:      true,
		{domain.StatusCompleted, domain.StatusRejected}:      true,
		{domain.StatusPendingReview, domain.StatusRejected}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]domain.PaymentStatus{from, to}]
			assert.Equal(t, want, domain.CanTransition(from, to), "%s -> %s", from, to)

			p := &domain.PaymentAttempt{Status: from}
			err := p.CanTransitionTo(to)
			if want {
				assert.NoError(t, err)
			} else {
				assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition), "%s -> %s", from, to)
				assert.ErrorIs(t, err, domain.ErrConflict)
			}
		}
	}
}

func TestPredecessorsIsACopy(t *testing.T) {
	preds := domain.Predecessors(domain.StatusRejected)
	require.Len(t, preds, 2)
	preds[0] = domain.StatusApproved

	assert.Equal(t, []domain.PaymentStatus{domain.StatusCompleted, domain.StatusPendingReview}, domain.Predecessors(domain.StatusRejected))
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range domain.TerminalStatuses() {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, domain.StatusPending.IsTerminal())
	assert.False(t, domain.StatusCompleted.IsTerminal())
	assert.False(t, domain.StatusPendingReview.IsTerminal())
}

func TestStatusUpdate_Apply(t *testing.T) {
	p := &domain.PaymentAttempt{Status: domain.StatusPending}
	now := time.Now().UTC()
	receipt := "NLJ7RT61SV"

	domain.StatusUpdate{TransactionRef: &receipt, CompletedAt: &now}.Apply(p, domain.StatusCompleted, now)

	assert.Equal(t, domain.StatusCompleted, p.Status)
	assert.Equal(t, &receipt, p.TransactionRef)
	assert.Equal(t, &now, p.CompletedAt)
	assert.Nil(t, p.ApprovedAt)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestClassifyResultCode(t *testing.T) {
	tests := map[string]domain.Outcome{
		"":     domain.OutcomeInconclusive,
		"4999": domain.OutcomeInconclusive,
		"0":    domain.OutcomeSuccess,
		"1032": domain.OutcomeCancelled,
		"1":    domain.OutcomeFailed,
		"1037": domain.OutcomeFailed,
		"2001": domain.OutcomeFailed,
	}
	for code, want := range tests {
		assert.Equal(t, want, domain.ClassifyResultCode(code), "code %q", code)
	}

	target, ok := domain.OutcomeInconclusive.TargetStatus()
	assert.False(t, ok)
	assert.Empty(t, target)
}

func TestNormalizePhone(t *testing.T) {
	valid := map[string]string{
		"0712345678":      "254712345678",
		"0712 345 678":    "254712345678",
		"+254712345678":   "254712345678",
		"254712345678":    "254712345678",
		"712345678":       "254712345678",
		"0112-345-678":    "254112345678",
		"(0712) 345678":   "254712345678",
		" +254 112345678": "254112345678",
	}
	for in, want := range valid {
		got, err := domain.NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "12345", "0812345678", "2547123456789", "25471234567", "07123abc78", "+1 415 555 0100"} {
		_, err := domain.NormalizePhone(in)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidPhone), "input %q", in)
	}
}

func TestFloorAmount(t *testing.T) {
	got, err := domain.FloorAmount(decimal.RequireFromString("100.99"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	got, err = domain.FloorAmount(decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = domain.FloorAmount(decimal.RequireFromString("9223372036854775807.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	for _, in := range []string{"0.99", "0", "-5", "9223372036854775808", "9223372036854775908", "18446744073709551716"} {
		got, err := domain.FloorAmount(decimal.RequireFromString(in))
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount), in)
		assert.Zero(t, got, in)
	}
}
