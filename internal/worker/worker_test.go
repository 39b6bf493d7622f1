package worker_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/adapters/memory"
	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/DanielPopoola/coinpay-gateway/internal/mocks"
	"github.com/DanielPopoola/coinpay-gateway/internal/testhelpers"
	"github.com/DanielPopoola/coinpay-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	store      *memory.Store
	payments   *memory.PaymentRepository
	callbacks  *memory.CallbackRepository
	gateway    *mocks.MockGatewayPort
	settlement *service.Settlement
	poller     *service.Poller
	processor  *service.CallbackProcessor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		store:     store,
		payments:  store.Payments(),
		callbacks: store.Callbacks(),
		gateway:   mocks.NewMockGatewayPort(t),
	}
	logger := discardLogger()
	approvals := service.NewApprovalService(h.payments, nil, logger)
	h.settlement = service.NewSettlement(h.payments, approvals, false, nil, logger)
	h.poller = service.NewPoller(h.gateway, h.payments, h.settlement, config.PollerConfig{Interval: time.Millisecond, MaxAttempts: 3}, logger)
	h.processor = service.NewCallbackProcessor(h.payments, h.callbacks, h.settlement, logger)
	return h
}

// pending stores a pending attempt created age ago, with a checkout reference when withRef is set.
func (h *harness) pending(t *testing.T, age time.Duration, withRef bool) *domain.PaymentAttempt {
	t.Helper()
	ctx := context.Background()
	attempt := testhelpers.NewAttempt(t, "user-1", 100)
	attempt.CreatedAt = attempt.CreatedAt.Add(-age)
	require.NoError(t, h.payments.Create(ctx, attempt))
	if withRef {
		require.NoError(t, h.payments.AttachGatewayRefs(ctx, attempt.ID, testhelpers.CheckoutRef(), "mr-1"))
	}
	stored, err := h.payments.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	return stored
}

func (h *harness) status(t *testing.T, p *domain.PaymentAttempt) domain.PaymentStatus {
	t.Helper()
	stored, err := h.payments.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return stored.Status
}

type recordingHandler struct {
	mu      sync.Mutex
	handled []*domain.GatewayCallback
	block   chan struct{}
}

func (r *recordingHandler) Handle(_ context.Context, cb *domain.GatewayCallback) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, cb)
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

func TestCallbackPool(t *testing.T) {
	t.Run("drains queued callbacks on shutdown", func(t *testing.T) {
		handler := &recordingHandler{}
		pool := worker.NewCallbackPool(8, handler, discardLogger())
		pool.Start(context.Background(), 2)

		for i := 0; i < 5; i++ {
			assert.True(t, pool.Submit(domain.NewGatewayCallback(testhelpers.DefaultCallback(testhelpers.CheckoutRef()), nil)))
		}
		pool.Shutdown()

		assert.Equal(t, 5, handler.count())
		assert.False(t, pool.Submit(domain.NewGatewayCallback(testhelpers.DefaultCallback(testhelpers.CheckoutRef()), nil)))
		pool.Shutdown()
	})

	t.Run("rejects when the queue is full", func(t *testing.T) {
		handler := &recordingHandler{}
		pool := worker.NewCallbackPool(1, handler, discardLogger())

		assert.True(t, pool.Submit(domain.NewGatewayCallback(testhelpers.DefaultCallback(testhelpers.CheckoutRef()), nil)))
		assert.False(t, pool.Submit(domain.NewGatewayCallback(testhelpers.DefaultCallback(testhelpers.CheckoutRef()), nil)))

		pool.Start(context.Background(), 1)
		pool.Shutdown()
		assert.Equal(t, 1, handler.count())
	})
}

func TestRetryWorker_RedrivesStoredCallback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	attempt := h.pending(t, 0, true)

	cb := domain.NewGatewayCallback(testhelpers.DefaultCallback(*attempt.GatewayCheckoutRef), nil)
	cb.ReceivedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, h.callbacks.Save(ctx, cb))

	w := worker.NewRetryWorker(h.callbacks, h.processor, time.Second, 10, 5, discardLogger())
	assert.Equal(t, 1, w.RunOnce(ctx))

	assert.Equal(t, domain.StatusCompleted, h.status(t, attempt))
	stored, err := h.callbacks.FindByID(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackProcessed, stored.Status)

	// processed rows are not picked up again
	assert.Equal(t, 0, w.RunOnce(ctx))
}

func TestRetryWorker_SkipsFreshCallbacks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	attempt := h.pending(t, 0, true)
	require.NoError(t, h.callbacks.Save(ctx, domain.NewGatewayCallback(testhelpers.DefaultCallback(*attempt.GatewayCheckoutRef), nil)))

	w := worker.NewRetryWorker(h.callbacks, h.processor, time.Minute, 10, 5, discardLogger())

	assert.Equal(t, 0, w.RunOnce(ctx))
	assert.Equal(t, domain.StatusPending, h.status(t, attempt))
}

func TestRetryWorker_DeadLettersExhaustedCallbacks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	cb := domain.NewGatewayCallback(testhelpers.DefaultCallback(testhelpers.CheckoutRef()), nil)
	cb.ReceivedAt = time.Now().UTC().Add(-time.Hour)
	cb.AttemptCount = 5
	require.NoError(t, h.callbacks.Save(ctx, cb))

	w := worker.NewRetryWorker(h.callbacks, h.processor, time.Second, 10, 5, discardLogger())
	assert.Equal(t, 0, w.RunOnce(ctx))

	stored, err := h.callbacks.FindByID(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackDead, stored.Status)
}

func TestReconciler_SettlesStalePending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	paid := h.pending(t, time.Hour, true)
	unsure := h.pending(t, time.Hour, true)
	orphan := h.pending(t, time.Hour, false)
	fresh := h.pending(t, 0, true)

	h.gateway.EXPECT().QueryStatus(mock.Anything, *paid.GatewayCheckoutRef).
		Return(&domain.StatusResult{ResultCode: "0", ResultDesc: "The service request is processed successfully."}, nil).Once()
	h.gateway.EXPECT().QueryStatus(mock.Anything, *unsure.GatewayCheckoutRef).
		Return(&domain.StatusResult{ResultCode: "", ResultDesc: "The transaction is being processed"}, nil).Once()

	r := worker.NewReconciler(h.payments, h.poller, time.Second, 2*time.Minute, 50, discardLogger())
	assert.Equal(t, 3, r.RunOnce(ctx))

	assert.Equal(t, domain.StatusCompleted, h.status(t, paid))
	assert.Equal(t, domain.StatusPendingReview, h.status(t, unsure))
	assert.Equal(t, domain.StatusPendingReview, h.status(t, orphan))
	assert.Equal(t, domain.StatusPending, h.status(t, fresh))

	// nothing left to do
	assert.Equal(t, 0, r.RunOnce(ctx))
}

func TestRetentionWorker_PurgesOldTerminalAttempts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	var purgeable []*domain.PaymentAttempt
	for _, status := range []domain.PaymentStatus{domain.StatusCancelled, domain.StatusFailed, domain.StatusRejected} {
		p := testhelpers.NewAttempt(t, "user-1", 10)
		p.Status = status
		p.UpdatedAt = old
		require.NoError(t, h.payments.Create(ctx, p))
		purgeable = append(purgeable, p)
	}

	review := testhelpers.NewAttempt(t, "user-1", 10)
	review.Status = domain.StatusPendingReview
	review.UpdatedAt = old
	require.NoError(t, h.payments.Create(ctx, review))

	recent := testhelpers.NewAttempt(t, "user-1", 10)
	recent.Status = domain.StatusCancelled
	require.NoError(t, h.payments.Create(ctx, recent))

	w := worker.NewRetentionWorker(h.payments, time.Hour, 24*time.Hour, 2, discardLogger())
	purged, err := w.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	for _, p := range purgeable {
		_, err := h.payments.FindByID(ctx, p.ID)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
	}
	assert.Equal(t, domain.StatusPendingReview, h.status(t, review))
	assert.Equal(t, domain.StatusCancelled, h.status(t, recent))
}
