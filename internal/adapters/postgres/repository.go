package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, user_id, user_email, user_name, amount, coins, package_id, package_info,
	payment_method, phone, gateway_checkout_ref, gateway_merchant_ref, status, transaction_ref,
	result_details, review_reason, reviewed_by, created_at, updated_at, completed_at, approved_at, rejected_at`

type PaymentRepository struct {
	db *DB
	q  Executor
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
		q:  db.Pool,
	}
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

// Create saves a new payment attempt
func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentAttempt) error {
	query := `INSERT INTO payment_attempts (
				id, user_id, user_email, user_name, amount, coins, package_id, package_info,
				payment_method, phone, gateway_checkout_ref, gateway_merchant_ref, status, transaction_ref,
				result_details, review_reason, reviewed_by, created_at, updated_at, completed_at, approved_at, rejected_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.UserEmail,
		p.UserName,
		p.Amount,
		p.Coins,
		p.PackageID,
		p.PackageInfo,
		string(p.PaymentMethod),
		p.Phone,
		p.GatewayCheckoutRef,
		p.GatewayMerchantRef,
		string(p.Status),
		p.TransactionRef,
		jsonParam(p.ResultDetails),
		p.ReviewReason,
		p.ReviewedBy,
		p.CreatedAt,
		p.UpdatedAt,
		p.CompletedAt,
		p.ApprovedAt,
		p.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment attempt: %w", err)
	}
	return nil
}

// FindByID retrieves a payment attempt by its system ID
func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE id = $1`

	p, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	return p, err
}

// FindByCheckoutRef is the join used by the webhook and the poller; it is served by
// the unique index on gateway_checkout_ref.
func (r *PaymentRepository) FindByCheckoutRef(ctx context.Context, checkoutRef string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE gateway_checkout_ref = $1`

	p, err := scanPayment(r.q.QueryRow(ctx, query, checkoutRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewPaymentNotFoundError(checkoutRef)
	}
	return p, err
}

func (r *PaymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		  AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT NULLIF($3::int, 0) OFFSET $4
	`

	rows, err := r.q.Query(ctx, query, statusStrings(filter.Statuses), filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("query payment attempts: %w", err)
	}
	return collectPayments(rows)
}

func (r *PaymentRepository) AttachGatewayRefs(ctx context.Context, id uuid.UUID, checkoutRef, merchantRef string) error {
	query := `UPDATE payment_attempts
		SET gateway_checkout_ref = $2, gateway_merchant_ref = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, checkoutRef, merchantRef, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("checkout reference %s already attached: %w", checkoutRef, err)
		}
		return fmt.Errorf("failed to attach gateway references: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewPaymentNotFoundError(id.String())
	}
	return nil
}

// UpdateStatus is the guarded write every transition goes through. The status
// predicate and the write are a single statement, so concurrent writers cannot
// both succeed.
func (r *PaymentRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.PaymentStatus,
	u domain.StatusUpdate,
) (*domain.PaymentAttempt, error) {
	query := `UPDATE payment_attempts SET
			status          = $2,
			transaction_ref = COALESCE($3, transaction_ref),
			result_details  = COALESCE($4::jsonb, result_details),
			review_reason   = COALESCE($5, review_reason),
			completed_at    = COALESCE($6, completed_at),
			approved_at     = COALESCE($7, approved_at),
			rejected_at     = COALESCE($8, rejected_at),
			updated_at      = $9,
			reviewed_by     = COALESCE($11, reviewed_by)
		WHERE id = $1 AND status = ANY($10)
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.q.QueryRow(ctx, query,
		id,
		string(status),
		u.TransactionRef,
		jsonParam(u.ResultDetails),
		u.ReviewReason,
		u.CompletedAt,
		u.ApprovedAt,
		u.RejectedAt,
		time.Now().UTC(),
		statusStrings(domain.Predecessors(status)),
		u.ReviewedBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrConflict(ctx, r.q, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return p, nil
}

// Annotate records late diagnostics on an attempt without moving it.
func (r *PaymentRepository) Annotate(
	ctx context.Context,
	id uuid.UUID,
	status domain.PaymentStatus,
	u domain.StatusUpdate,
) (*domain.PaymentAttempt, error) {
	query := `UPDATE payment_attempts SET
			transaction_ref = COALESCE($3, transaction_ref),
			result_details  = COALESCE($4::jsonb, result_details),
			review_reason   = COALESCE($5, review_reason),
			updated_at      = $6
		WHERE id = $1 AND status = $2
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.q.QueryRow(ctx, query,
		id,
		string(status),
		u.TransactionRef,
		jsonParam(u.ResultDetails),
		u.ReviewReason,
		time.Now().UTC(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrConflict(ctx, r.q, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to annotate payment: %w", err)
	}
	return p, nil
}

// ApproveAndCredit runs completed -> approved and the purchase credit in one
// transaction. The ledger statements only run if the guarded update matched.
func (r *PaymentRepository) ApproveAndCredit(ctx context.Context, id uuid.UUID, approvedAt time.Time, actor string) (*domain.PaymentAttempt, *domain.LedgerEntry, error) {
	var (
		payment *domain.PaymentAttempt
		entry   *domain.LedgerEntry
	)

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `UPDATE payment_attempts
			SET status = 'approved', approved_at = $2, updated_at = $2, reviewed_by = $3
			WHERE id = $1 AND status = 'completed'
			RETURNING ` + paymentColumns

		p, err := scanPayment(tx.QueryRow(ctx, query, id, approvedAt, actor))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrConflict(ctx, tx, id)
		}
		if err != nil {
			return fmt.Errorf("failed to approve payment: %w", err)
		}

		paymentID := p.ID
		e := domain.NewLedgerEntry(p.UserID, p.Coins, domain.ReasonPurchase, &paymentID, "")
		e.Actor = actor
		if err := insertEntry(ctx, tx, e); err != nil {
			if IsUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		if _, err := creditAccount(ctx, tx, p.UserID, p.Coins, e.CreatedAt); err != nil {
			return err
		}

		payment, entry = p, e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, entry, nil
}

func (r *PaymentRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending attempts: %w", err)
	}
	return collectPayments(rows)
}

func (r *PaymentRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `DELETE FROM payment_attempts
		WHERE id IN (
			SELECT id FROM payment_attempts
			WHERE status = ANY($1) AND updated_at < $2
			ORDER BY updated_at ASC
			LIMIT $3
		)
	`

	tag, err := r.q.Exec(ctx, query, statusStrings(domain.TerminalStatuses()), cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// missOrConflict tells a missing row apart from a failed status guard.
func (r *PaymentRepository) missOrConflict(ctx context.Context, q Executor, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_attempts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check payment existence: %w", err)
	}
	if !exists {
		return domain.NewPaymentNotFoundError(id.String())
	}
	return domain.ErrConflict
}

func scanPayment(row pgx.Row) (*domain.PaymentAttempt, error) {
	var (
		p       domain.PaymentAttempt
		method  string
		status  string
		details []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.UserEmail, &p.UserName, &p.Amount, &p.Coins, &p.PackageID, &p.PackageInfo,
		&method, &p.Phone, &p.GatewayCheckoutRef, &p.GatewayMerchantRef, &status, &p.TransactionRef,
		&details, &p.ReviewReason, &p.ReviewedBy, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.ApprovedAt, &p.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentMethod = domain.PaymentMethod(method)
	p.Status = domain.PaymentStatus(status)
	if len(details) > 0 {
		p.ResultDetails = json.RawMessage(details)
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]*domain.PaymentAttempt, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentAttempt, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred while scanning rows: %w", err)
	}
	return results, nil
}

func statusStrings(statuses []domain.PaymentStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// jsonParam passes an empty document as SQL NULL.
func jsonParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
