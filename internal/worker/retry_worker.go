package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

// RetryWorker re-drives webhook callbacks that were stored but never processed,
// either because processing failed or because the pool was saturated.
type RetryWorker struct {
	callbacks   ports.CallbackRepository
	handler     CallbackHandler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
}

func NewRetryWorker(
	callbacks ports.CallbackRepository,
	handler CallbackHandler,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	logger *slog.Logger,
) *RetryWorker {
	return &RetryWorker{
		callbacks:   callbacks,
		handler:     handler,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	w.logger.Info("callback retry worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("callback retry worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce dead-letters exhausted callbacks and processes the ones that are due.
func (w *RetryWorker) RunOnce(ctx context.Context) int {
	dead, err := w.callbacks.MarkDead(ctx, w.maxAttempts)
	if err != nil {
		w.logger.Error("failed to dead-letter callbacks", "error", err)
	} else if dead > 0 {
		w.logger.Warn("callbacks exhausted retries", "count", dead, "max_attempts", w.maxAttempts)
	}

	// Rows younger than one interval may still be queued in the pool.
	due, err := w.callbacks.FindDue(ctx, w.interval, w.maxAttempts, w.batchSize)
	if err != nil {
		w.logger.Error("failed to fetch due callbacks", "error", err)
		return 0
	}

	for _, cb := range due {
		if ctx.Err() != nil {
			break
		}
		w.handler.Handle(ctx, cb)
	}

	if len(due) > 0 {
		w.logger.Info("re-drove gateway callbacks", "count", len(due))
	}
	return len(due)
}
