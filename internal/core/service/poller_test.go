package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func inconclusive() *domain.StatusResult {
	return &domain.StatusResult{ResultDesc: "The transaction is being processed"}
}

func TestPoller_TimeoutMovesToPendingReview(t *testing.T) {
	f := newFixture(t, withPoller(2*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(inconclusive(), nil)

	status, err := f.poller.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingReview, status)
	got := f.reload(t, attempt.ID)
	assert.Equal(t, domain.StatusPendingReview, got.Status)
	assert.NotNil(t, got.ReviewReason)
	assert.Zero(t, f.balance(t, attempt.UserID))
	assert.LessOrEqual(t, len(f.gateway.Calls), 24)
}

func TestPoller_SlowGatewayStaysWithinBudget(t *testing.T) {
	const interval = 20 * time.Millisecond
	f := newFixture(t, withPoller(interval, 6))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).
		RunAndReturn(func(ctx context.Context, _ string) (*domain.StatusResult, error) {
			deadline, ok := ctx.Deadline()
			if !ok || time.Until(deadline) > interval {
				return nil, errors.New("query is not bounded by the poll interval")
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(4 * interval):
				return inconclusive(), nil
			}
		})

	start := time.Now()
	status, err := f.poller.Run(context.Background(), ref)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingReview, status)
	assert.Less(t, elapsed, 6*interval+60*time.Millisecond, "session overran its budget")
	assert.Equal(t, domain.StatusPendingReview, f.reload(t, attempt.ID).Status)
}

func TestPoller_SuccessAfterInconclusive(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(inconclusive(), nil).Times(2)
	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(&domain.StatusResult{
		ResultCode: "0",
		ResultDesc: "The service request is processed successfully.",
	}, nil).Once()

	status, err := f.poller.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.NotNil(t, f.reload(t, attempt.ID).CompletedAt)
}

func TestPoller_NetworkErrorsKeepPolling(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	netErr := &domain.GatewayError{Code: domain.ErrCodeNetwork, Message: "gateway unreachable"}
	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(nil, netErr).Times(3)
	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(&domain.StatusResult{ResultCode: "1032", ResultDesc: "Request cancelled by user"}, nil).Once()

	status, err := f.poller.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, status)
}

func TestPoller_ExplicitFailure(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(&domain.StatusResult{ResultCode: "2001", ResultDesc: "The initiator information is invalid."}, nil).Once()

	status, err := f.poller.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, status)
}

func TestPoller_StopsWhenWebhookAlreadySettled(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusCompleted)

	status, err := f.poller.Run(context.Background(), *attempt.GatewayCheckoutRef)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	f.gateway.AssertNotCalled(t, "QueryStatus", mock.Anything, mock.Anything)
}

func TestPoller_CancelStopsFuturePolls(t *testing.T) {
	f := newFixture(t, withPoller(time.Hour, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef
	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(inconclusive(), nil).Maybe()

	started, err := f.poller.Start(ref)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, f.poller.Active(ref))

	again, err := f.poller.Start(ref)
	require.NoError(t, err)
	assert.False(t, again, "second start must not open another session")

	assert.True(t, f.poller.Cancel(ref))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.poller.Wait(ctx, ref))

	assert.Eventually(t, func() bool { return !f.poller.Active(ref) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StatusPending, f.reload(t, attempt.ID).Status)
	assert.False(t, f.poller.Cancel(ref))
}

func TestPoller_BackgroundSessionSettles(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	ref := *attempt.GatewayCheckoutRef

	f.gateway.EXPECT().QueryStatus(mock.Anything, ref).Return(&domain.StatusResult{ResultCode: "0"}, nil).Once()

	_, err := f.poller.Start(ref)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return f.reload(t, attempt.ID).Status == domain.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_ShutdownRejectsNewSessions(t *testing.T) {
	f := newFixture(t, withPoller(time.Hour, 24))
	attempt := f.seedAttempt(t, 100, domain.StatusPending)
	f.gateway.EXPECT().QueryStatus(mock.Anything, *attempt.GatewayCheckoutRef).Return(inconclusive(), nil).Maybe()

	_, err := f.poller.Start(*attempt.GatewayCheckoutRef)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.poller.Shutdown(ctx))

	_, err = f.poller.Start("ws_CO_other")
	assert.ErrorIs(t, err, service.ErrPollerStopped)
}

func TestPoller_Recheck(t *testing.T) {
	t.Run("conclusive answer settles", func(t *testing.T) {
		f := newFixture(t)
		attempt := f.seedAttempt(t, 100, domain.StatusPending)
		f.gateway.EXPECT().QueryStatus(mock.Anything, *attempt.GatewayCheckoutRef).
			Return(&domain.StatusResult{ResultCode: "0"}, nil).Once()

		require.NoError(t, f.poller.Recheck(context.Background(), attempt, service.SourceSweeper))
		assert.Equal(t, domain.StatusCompleted, f.reload(t, attempt.ID).Status)
	})

	t.Run("inconclusive answer parks for review", func(t *testing.T) {
		f := newFixture(t)
		attempt := f.seedAttempt(t, 100, domain.StatusPending)
		f.gateway.EXPECT().QueryStatus(mock.Anything, *attempt.GatewayCheckoutRef).Return(inconclusive(), nil).Once()

		require.NoError(t, f.poller.Recheck(context.Background(), attempt, service.SourceSweeper))
		assert.Equal(t, domain.StatusPendingReview, f.reload(t, attempt.ID).Status)
	})

	t.Run("gateway error parks for review", func(t *testing.T) {
		f := newFixture(t)
		attempt := f.seedAttempt(t, 100, domain.StatusPending)
		f.gateway.EXPECT().QueryStatus(mock.Anything, *attempt.GatewayCheckoutRef).
			Return(nil, &domain.GatewayError{Code: domain.ErrCodeToken, Message: "no token"}).Once()

		require.NoError(t, f.poller.Recheck(context.Background(), attempt, service.SourceSweeper))
		got := f.reload(t, attempt.ID)
		assert.Equal(t, domain.StatusPendingReview, got.Status)
		require.NotNil(t, got.ReviewReason)
		assert.Contains(t, *got.ReviewReason, domain.ErrCodeToken)
	})

	t.Run("attempt without checkout reference", func(t *testing.T) {
		f := newFixture(t)
		attempt, err := domain.NewPaymentAttempt("user-2", "", "", "254712345678", 10, 10, "", "")
		require.NoError(t, err)
		require.NoError(t, f.payments.Create(context.Background(), attempt))

		require.NoError(t, f.poller.Recheck(context.Background(), attempt, service.SourceSweeper))
		assert.Equal(t, domain.StatusPendingReview, f.reload(t, attempt.ID).Status)
	})
}
