package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
)

// ErrPollerStopped is returned by Start after Shutdown.
var ErrPollerStopped = errors.New("poller is shut down")

type pollSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller runs time-bounded status polling sessions keyed by checkout reference.
// Each session is a background goroutine with its own timer.
type Poller struct {
	gateway     ports.GatewayPort
	repo        ports.PaymentRepository
	settlement  *Settlement
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*pollSession
	closed   bool
	wg       sync.WaitGroup
}

func NewPoller(
	gateway ports.GatewayPort,
	repo ports.PaymentRepository,
	settlement *Settlement,
	cfg config.PollerConfig,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		gateway:     gateway,
		repo:        repo,
		settlement:  settlement,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
		sessions:    make(map[string]*pollSession),
	}
}

// Start begins polling checkoutRef in the background. It returns false when a
// session for checkoutRef is already running.
func (p *Poller) Start(checkoutRef string) (bool, error) {
	if checkoutRef == "" {
		return false, domain.NewMissingRequiredFieldError("checkoutRef")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrPollerStopped
	}
	if _, ok := p.sessions[checkoutRef]; ok {
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &pollSession{cancel: cancel, done: make(chan struct{})}
	p.sessions[checkoutRef] = sess

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(sess.done)
		defer p.forget(checkoutRef, sess)
		defer cancel()

		status, err := p.Run(ctx, checkoutRef)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("poll session ended with error", "checkout_ref", checkoutRef, "error", err)
			return
		}
		p.logger.Info("poll session ended", "checkout_ref", checkoutRef, "status", status)
	}()
	return true, nil
}

// Cancel stops scheduling further polls for checkoutRef. A transition already
// being written is not interrupted.
func (p *Poller) Cancel(checkoutRef string) bool {
	p.mu.Lock()
	sess, ok := p.sessions[checkoutRef]
	p.mu.Unlock()
	if !ok {
		return false
	}
	sess.cancel()
	return true
}

// Active reports whether a session is running for checkoutRef.
func (p *Poller) Active(checkoutRef string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[checkoutRef]
	return ok
}

// Wait blocks until the session for checkoutRef ends or ctx is done.
func (p *Poller) Wait(ctx context.Context, checkoutRef string) error {
	p.mu.Lock()
	sess, ok := p.sessions[checkoutRef]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every session and waits for them to return.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	for _, sess := range p.sessions {
		sess.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) forget(checkoutRef string, sess *pollSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[checkoutRef] == sess {
		delete(p.sessions, checkoutRef)
	}
}

// Run polls the gateway every interval, sending the first query right away,
// and returns the attempt's status when polling stops. The session is bounded
// by interval*maxAttempts of wall-clock time and each query by one interval.
// Exhausting either budget moves the attempt to pending_review. Cancelling ctx
// stops polling without a write.
func (p *Poller) Run(ctx context.Context, checkoutRef string) (domain.PaymentStatus, error) {
	budgetCtx, cancelBudget := context.WithTimeout(ctx, p.budget())
	defer cancelBudget()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	queries := 0
	for queries < p.maxAttempts {
		if queries > 0 {
			select {
			case <-budgetCtx.Done():
			case <-ticker.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if budgetCtx.Err() != nil {
			break
		}
		queries++

		payment, err := p.repo.FindByCheckoutRef(ctx, checkoutRef)
		if err != nil {
			return "", fmt.Errorf("load payment for %s: %w", checkoutRef, err)
		}
		if payment.Status != domain.StatusPending {
			// The webhook or another session already settled it.
			return payment.Status, nil
		}

		queryCtx, cancelQuery := context.WithTimeout(budgetCtx, p.interval)
		result, err := p.gateway.QueryStatus(queryCtx, checkoutRef)
		cancelQuery()
		if err != nil {
			p.logger.Warn("status query failed, will retry",
				"checkout_ref", checkoutRef,
				"attempt", queries,
				"error", err,
			)
			continue
		}
		if domain.ClassifyResultCode(result.ResultCode) == domain.OutcomeInconclusive {
			continue
		}
		// Committed transitions must survive the session being closed.
		if _, err := p.settlement.Apply(context.WithoutCancel(ctx), payment.ID, Observation{
			ResultCode: result.ResultCode,
			ResultDesc: result.ResultDesc,
			Metadata:   result.Metadata,
			Source:     SourcePoller,
		}); err != nil {
			return "", err
		}
		return p.currentStatus(ctx, checkoutRef)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payment, err := p.repo.FindByCheckoutRef(context.WithoutCancel(ctx), checkoutRef)
	if err != nil {
		return "", err
	}
	reason := fmt.Sprintf("no conclusive gateway result after %d status queries in %s", queries, p.budget())
	if _, err := p.settlement.MarkPendingReview(context.WithoutCancel(ctx), payment.ID, reason, SourcePoller); err != nil {
		return "", err
	}
	return p.currentStatus(ctx, checkoutRef)
}

func (p *Poller) budget() time.Duration {
	return p.interval * time.Duration(p.maxAttempts)
}

// Recheck makes a single status query for a stale pending attempt and settles it:
// a conclusive answer applies the matching transition, anything else moves the
// attempt to pending_review.
func (p *Poller) Recheck(ctx context.Context, payment *domain.PaymentAttempt, source string) error {
	if payment.GatewayCheckoutRef == nil {
		_, err := p.settlement.MarkPendingReview(ctx, payment.ID, "push was never acknowledged by the gateway", source)
		return err
	}

	result, err := p.gateway.QueryStatus(ctx, *payment.GatewayCheckoutRef)
	if err == nil && domain.ClassifyResultCode(result.ResultCode) != domain.OutcomeInconclusive {
		_, err = p.settlement.Apply(ctx, payment.ID, Observation{
			ResultCode: result.ResultCode,
			ResultDesc: result.ResultDesc,
			Metadata:   result.Metadata,
			Source:     source,
		})
		return err
	}

	reason := "no conclusive gateway result within the polling window"
	if err != nil {
		reason = "final status query failed: " + domain.ErrorCode(err)
	}
	_, err = p.settlement.MarkPendingReview(ctx, payment.ID, reason, source)
	return err
}

func (p *Poller) currentStatus(ctx context.Context, checkoutRef string) (domain.PaymentStatus, error) {
	payment, err := p.repo.FindByCheckoutRef(context.WithoutCancel(ctx), checkoutRef)
	if err != nil {
		return "", err
	}
	return payment.Status, nil
}
