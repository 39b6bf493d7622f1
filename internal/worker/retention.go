package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

// RetentionWorker purges attempts that reached a terminal status long ago.
// Ledger entries are kept; they only reference the attempt id.
type RetentionWorker struct {
	repo      ports.PaymentRepository
	interval  time.Duration
	maxAge    time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRetentionWorker(
	repo ports.PaymentRepository,
	interval time.Duration,
	maxAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *RetentionWorker {
	return &RetentionWorker{
		repo:      repo,
		interval:  interval,
		maxAge:    maxAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	w.logger.Info("retention worker started", "interval", w.interval, "max_age", w.maxAge)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention worker stopping")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("retention pass failed", "error", err)
			}
		}
	}
}

// RunOnce deletes in batches until a batch comes back short.
func (w *RetentionWorker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-w.maxAge)

	var total int64
	for {
		n, err := w.repo.DeleteTerminalBefore(ctx, cutoff, w.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(w.batchSize) || ctx.Err() != nil {
			break
		}
	}

	if total > 0 {
		w.logger.Info("purged terminal payment attempts", "count", total, "cutoff", cutoff)
	}
	return total, nil
}
