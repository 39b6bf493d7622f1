package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
)

type Rechecker interface {
	Recheck(ctx context.Context, payment *domain.PaymentAttempt, source string) error
	Active(checkoutRef string) bool
}

// Reconciler finds attempts left pending past the poll budget, typically after
// a restart or a cancelled session, and gives each one last gateway query.
type Reconciler struct {
	repo      ports.PaymentRepository
	checker   Rechecker
	interval  time.Duration
	staleAge  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	repo ports.PaymentRepository,
	checker Rechecker,
	interval time.Duration,
	staleAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		repo:      repo,
		checker:   checker,
		interval:  interval,
		staleAge:  staleAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting pending reconciler", "interval", r.interval, "stale_after", r.staleAge)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping pending reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle and returns how many attempts it rechecked.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-r.staleAge)
	stale, err := r.repo.FindStalePending(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stale pending attempts", "error", err)
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	r.logger.Info("reconciling stale pending attempts", "count", len(stale))

	rechecked := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			break
		}
		if p.GatewayCheckoutRef != nil && r.checker.Active(*p.GatewayCheckoutRef) {
			continue
		}
		if err := r.checker.Recheck(ctx, p, service.SourceSweeper); err != nil {
			r.logger.Error("reconciliation failed for payment", "payment_id", p.ID, "error", err)
			continue
		}
		rechecked++
	}
	return rechecked
}
