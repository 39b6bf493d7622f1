// Package memory provides in-process repositories with the same atomicity
// guarantees as the Postgres adapter. A single mutex stands in for the
// database transaction.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/google/uuid"
)

type Store struct {
	mu         sync.Mutex
	payments   map[uuid.UUID]*domain.PaymentAttempt
	byCheckout map[string]uuid.UUID
	accounts   map[string]*domain.LedgerAccount
	entries    []*domain.LedgerEntry
	callbacks  map[uuid.UUID]*domain.GatewayCallback
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		payments:   make(map[uuid.UUID]*domain.PaymentAttempt),
		byCheckout: make(map[string]uuid.UUID),
		accounts:   make(map[string]*domain.LedgerAccount),
		callbacks:  make(map[uuid.UUID]*domain.GatewayCallback),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Payments() *PaymentRepository   { return &PaymentRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository       { return &LedgerRepository{s: s} }
func (s *Store) Callbacks() *CallbackRepository { return &CallbackRepository{s: s} }

type PaymentRepository struct{ s *Store }

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func clonePayment(p *domain.PaymentAttempt) *domain.PaymentAttempt {
	c := *p
	c.ResultDetails = slices.Clone(p.ResultDetails)
	return &c
}

func (r *PaymentRepository) Create(_ context.Context, attempt *domain.PaymentAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[attempt.ID]; ok {
		return fmt.Errorf("payment %s already exists", attempt.ID)
	}
	r.s.payments[attempt.ID] = clonePayment(attempt)
	return nil
}

func (r *PaymentRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) FindByCheckoutRef(_ context.Context, checkoutRef string) (*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byCheckout[checkoutRef]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(checkoutRef)
	}
	return clonePayment(r.s.payments[id]), nil
}

func (r *PaymentRepository) List(_ context.Context, filter domain.PaymentFilter) ([]*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.PaymentAttempt
	for _, p := range r.s.payments {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, p.Status) {
			continue
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset >= len(out) {
		return []*domain.PaymentAttempt{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *PaymentRepository) AttachGatewayRefs(_ context.Context, id uuid.UUID, checkoutRef, merchantRef string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return domain.NewPaymentNotFoundError(id.String())
	}
	if other, taken := r.s.byCheckout[checkoutRef]; taken && other != id {
		return fmt.Errorf("checkout reference %s already attached to %s", checkoutRef, other)
	}
	p.GatewayCheckoutRef = &checkoutRef
	p.GatewayMerchantRef = &merchantRef
	p.UpdatedAt = r.s.now()
	r.s.byCheckout[checkoutRef] = id
	return nil
}

func (r *PaymentRepository) UpdateStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus, update domain.StatusUpdate) (*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	if !domain.CanTransition(p.Status, status) {
		return nil, domain.ErrConflict
	}
	update.Apply(p, status, r.s.now())
	return clonePayment(p), nil
}

func (r *PaymentRepository) Annotate(_ context.Context, id uuid.UUID, status domain.PaymentStatus, update domain.StatusUpdate) (*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	if p.Status != status {
		return nil, domain.ErrConflict
	}
	domain.StatusUpdate{
		TransactionRef: update.TransactionRef,
		ResultDetails:  update.ResultDetails,
		ReviewReason:   update.ReviewReason,
	}.Apply(p, status, r.s.now())
	return clonePayment(p), nil
}

func (r *PaymentRepository) ApproveAndCredit(_ context.Context, id uuid.UUID, approvedAt time.Time, actor string) (*domain.PaymentAttempt, *domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil, domain.NewPaymentNotFoundError(id.String())
	}
	if !domain.CanTransition(p.Status, domain.StatusApproved) {
		return nil, nil, domain.ErrConflict
	}

	domain.StatusUpdate{ApprovedAt: &approvedAt, ReviewedBy: &actor}.Apply(p, domain.StatusApproved, r.s.now())

	paymentID := p.ID
	entry := domain.NewLedgerEntry(p.UserID, p.Coins, domain.ReasonPurchase, &paymentID, "")
	entry.Actor = actor
	r.s.credit(entry)
	return clonePayment(p), entry, nil
}

func (r *PaymentRepository) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]*domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.PaymentAttempt
	for _, p := range r.s.payments {
		if p.Status == domain.StatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PaymentRepository) DeleteTerminalBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, p := range r.s.payments {
		if limit > 0 && deleted >= int64(limit) {
			break
		}
		if !p.Status.IsTerminal() || !p.UpdatedAt.Before(cutoff) {
			continue
		}
		if p.GatewayCheckoutRef != nil {
			delete(r.s.byCheckout, *p.GatewayCheckoutRef)
		}
		delete(r.s.payments, id)
		deleted++
	}
	return deleted, nil
}

// credit appends entry and moves the balance. Callers hold s.mu.
func (s *Store) credit(entry *domain.LedgerEntry) *domain.LedgerAccount {
	acct, ok := s.accounts[entry.UserID]
	if !ok {
		acct = &domain.LedgerAccount{UserID: entry.UserID}
		s.accounts[entry.UserID] = acct
	}
	acct.Balance += entry.Delta
	acct.Version++
	acct.UpdatedAt = s.now()
	s.entries = append(s.entries, entry)
	c := *acct
	return &c
}

type LedgerRepository struct{ s *Store }

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) GetAccount(_ context.Context, userID string) (*domain.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if acct, ok := r.s.accounts[userID]; ok {
		c := *acct
		return &c, nil
	}
	return &domain.LedgerAccount{UserID: userID}, nil
}

func (r *LedgerRepository) ListEntries(_ context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.LedgerEntry{}
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if e := r.s.entries[i]; e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	if offset >= len(out) {
		return []*domain.LedgerEntry{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *LedgerRepository) ApplyEntry(_ context.Context, entry *domain.LedgerEntry, expectedVersion int64) (*domain.LedgerAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var version, balance int64
	if acct, ok := r.s.accounts[entry.UserID]; ok {
		version, balance = acct.Version, acct.Balance
	}
	if version != expectedVersion || balance+entry.Delta < 0 {
		return nil, domain.ErrConflict
	}
	return r.s.credit(entry), nil
}

type CallbackRepository struct{ s *Store }

var _ ports.CallbackRepository = (*CallbackRepository)(nil)

func cloneCallback(cb *domain.GatewayCallback) *domain.GatewayCallback {
	c := *cb
	return &c
}

func (r *CallbackRepository) Save(_ context.Context, cb *domain.GatewayCallback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.callbacks[cb.ID] = cloneCallback(cb)
	return nil
}

func (r *CallbackRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.GatewayCallback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cb, ok := r.s.callbacks[id]
	if !ok {
		return nil, domain.ErrCallbackNotFound
	}
	return cloneCallback(cb), nil
}

func (r *CallbackRepository) FindDue(_ context.Context, olderThan time.Duration, maxAttempts, limit int) ([]*domain.GatewayCallback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	var out []*domain.GatewayCallback
	for _, cb := range r.s.callbacks {
		if cb.Status != domain.CallbackReceived || cb.AttemptCount >= maxAttempts {
			continue
		}
		if cb.ReceivedAt.After(now.Add(-olderThan)) {
			continue
		}
		if cb.NextRetryAt != nil && cb.NextRetryAt.After(now) {
			continue
		}
		out = append(out, cloneCallback(cb))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CallbackRepository) MarkProcessed(_ context.Context, id uuid.UUID, status domain.CallbackStatus, note *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cb, ok := r.s.callbacks[id]
	if !ok {
		return domain.ErrCallbackNotFound
	}
	now := r.s.now()
	cb.Status = status
	cb.Note = note
	cb.ProcessedAt = &now
	return nil
}

func (r *CallbackRepository) ScheduleRetry(_ context.Context, id uuid.UUID, nextRetryAt time.Time, lastErr string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cb, ok := r.s.callbacks[id]
	if !ok {
		return domain.ErrCallbackNotFound
	}
	cb.AttemptCount++
	cb.NextRetryAt = &nextRetryAt
	cb.LastError = &lastErr
	return nil
}

func (r *CallbackRepository) MarkDead(_ context.Context, maxAttempts int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, cb := range r.s.callbacks {
		if cb.Status == domain.CallbackReceived && cb.AttemptCount >= maxAttempts {
			cb.Status = domain.CallbackDead
			n++
		}
	}
	return n, nil
}
