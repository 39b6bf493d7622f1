package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

type CallbackHandler interface {
	Handle(ctx context.Context, cb *domain.GatewayCallback)
}

// CallbackPool processes stored webhook callbacks on a fixed number of
// goroutines. Submit never blocks; a full queue leaves the callback in the
// inbox for the retry worker.
type CallbackPool struct {
	jobs    chan *domain.GatewayCallback
	handler CallbackHandler
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewCallbackPool(queueSize int, handler CallbackHandler, logger *slog.Logger) *CallbackPool {
	return &CallbackPool{
		jobs:    make(chan *domain.GatewayCallback, queueSize),
		handler: handler,
		logger:  logger,
	}
}

func (p *CallbackPool) Start(ctx context.Context, workerCount int) {
	p.logger.Info("callback pool started", "workers", workerCount, "queue_size", cap(p.jobs))
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *CallbackPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for cb := range p.jobs {
		p.handler.Handle(ctx, cb)
	}
}

func (p *CallbackPool) Submit(cb *domain.GatewayCallback) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.jobs <- cb:
		return true
	default:
		p.logger.Warn("callback queue full, deferring to retry worker",
			"callback_id", cb.ID,
			"checkout_ref", cb.CheckoutRef,
		)
		return false
	}
}

// Shutdown stops accepting work and waits for queued callbacks to drain.
func (p *CallbackPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("callback pool stopped")
}
