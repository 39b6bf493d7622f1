package service_test

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
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/DanielPopoola/coinpay-gateway/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	payments   *memory.PaymentRepository
	ledger     *memory.LedgerRepository
	callbacks  *memory.CallbackRepository
	gateway    *mocks.MockGatewayPort
	events     *recordingPublisher
	approvals  *service.ApprovalService
	settlement *service.Settlement
	poller     *service.Poller
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	autoApprove bool
	poller      config.PollerConfig
}

func withAutoApprove() fixtureOption {
	return func(c *fixtureConfig) { c.autoApprove = true }
}

func withPoller(interval time.Duration, attempts int) fixtureOption {
	return func(c *fixtureConfig) { c.poller = config.PollerConfig{Interval: interval, MaxAttempts: attempts} }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{poller: config.PollerConfig{Interval: 5 * time.Millisecond, MaxAttempts: 24}}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.NewStore()
	f := &fixture{
		store:     store,
		payments:  store.Payments(),
		ledger:    store.Ledger(),
		callbacks: store.Callbacks(),
		gateway:   mocks.NewMockGatewayPort(t),
		events:    &recordingPublisher{},
	}
	logger := discardLogger()
	f.approvals = service.NewApprovalService(f.payments, f.events, logger)
	f.settlement = service.NewSettlement(f.payments, f.approvals, cfg.autoApprove, f.events, logger)
	f.poller = service.NewPoller(f.gateway, f.payments, f.settlement, cfg.poller, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.poller.Shutdown(ctx)
	})
	return f
}

// seedAttempt stores a pending attempt with a checkout reference and walks it to status.
func (f *fixture) seedAttempt(t *testing.T, coins int64, status domain.PaymentStatus) *domain.PaymentAttempt {
	t.Helper()
	ctx := context.Background()

	attempt, err := domain.NewPaymentAttempt("user-1", "user@example.com", "Test User", "254712345678", 100, coins, "pkg-6000", "6000 coins + 50 bonus")
	require.NoError(t, err)
	require.NoError(t, f.payments.Create(ctx, attempt))

	checkoutRef := "ws_CO_" + uuid.NewString()
	require.NoError(t, f.payments.AttachGatewayRefs(ctx, attempt.ID, checkoutRef, "mr-"+uuid.NewString()))

	now := time.Now().UTC()
	switch status {
	case domain.StatusPending:
	case domain.StatusCompleted:
		_, err = f.payments.UpdateStatus(ctx, attempt.ID, domain.StatusCompleted, domain.StatusUpdate{CompletedAt: &now})
	case domain.StatusPendingReview, domain.StatusCancelled, domain.StatusFailed:
		_, err = f.payments.UpdateStatus(ctx, attempt.ID, status, domain.StatusUpdate{})
	default:
		t.Fatalf("cannot seed status %s", status)
	}
	require.NoError(t, err)

	stored, err := f.payments.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	return stored
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	acct, err := f.ledger.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return acct.Balance
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *domain.PaymentAttempt {
	t.Helper()
	p, err := f.payments.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}
