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

const callbackColumns = `id, checkout_ref, merchant_ref, result_code, result_desc, metadata, payload,
	status, attempt_count, next_retry_at, last_error, note, received_at, processed_at`

type CallbackRepository struct {
	q Executor
}

func NewCallbackRepository(db *DB) *CallbackRepository {
	return &CallbackRepository{q: db.Pool}
}

var _ ports.CallbackRepository = (*CallbackRepository)(nil)

func (r *CallbackRepository) Save(ctx context.Context, cb *domain.GatewayCallback) error {
	var metadata any
	if len(cb.Metadata) > 0 {
		raw, err := json.Marshal(cb.Metadata)
		if err != nil {
			return fmt.Errorf("encode callback metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := r.q.Exec(ctx, `INSERT INTO gateway_callbacks (`+callbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		cb.ID,
		cb.CheckoutRef,
		cb.MerchantRef,
		cb.ResultCode,
		cb.ResultDesc,
		metadata,
		jsonParam(cb.Payload),
		string(cb.Status),
		cb.AttemptCount,
		cb.NextRetryAt,
		cb.LastError,
		cb.Note,
		cb.ReceivedAt,
		cb.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store gateway callback: %w", err)
	}
	return nil
}

func (r *CallbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.GatewayCallback, error) {
	cb, err := scanCallback(r.q.QueryRow(ctx, `SELECT `+callbackColumns+` FROM gateway_callbacks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCallbackNotFound
	}
	return cb, err
}

// FindDue lists inbox rows still waiting for processing that have been idle for
// at least olderThan and whose retry time, if any, has passed.
func (r *CallbackRepository) FindDue(ctx context.Context, olderThan time.Duration, maxAttempts, limit int) ([]*domain.GatewayCallback, error) {
	now := time.Now().UTC()
	rows, err := r.q.Query(ctx, `SELECT `+callbackColumns+` FROM gateway_callbacks
		WHERE status = 'received'
		  AND attempt_count < $1
		  AND received_at < $2
		  AND (next_retry_at IS NULL OR next_retry_at <= $3)
		ORDER BY received_at ASC
		LIMIT $4`,
		maxAttempts, now.Add(-olderThan), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due callbacks: %w", err)
	}

	callbacks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.GatewayCallback, error) {
		return scanCallback(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan due callbacks: %w", err)
	}
	return callbacks, nil
}

func (r *CallbackRepository) MarkProcessed(ctx context.Context, id uuid.UUID, status domain.CallbackStatus, note *string) error {
	tag, err := r.q.Exec(ctx, `UPDATE gateway_callbacks
		SET status = $2, note = $3, processed_at = $4
		WHERE id = $1`,
		id, string(status), note, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark callback processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCallbackNotFound
	}
	return nil
}

func (r *CallbackRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastErr string) error {
	tag, err := r.q.Exec(ctx, `UPDATE gateway_callbacks
		SET attempt_count = attempt_count + 1, next_retry_at = $2, last_error = $3
		WHERE id = $1`,
		id, nextRetryAt, lastErr,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule callback retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCallbackNotFound
	}
	return nil
}

func (r *CallbackRepository) MarkDead(ctx context.Context, maxAttempts int) (int64, error) {
	tag, err := r.q.Exec(ctx, `UPDATE gateway_callbacks
		SET status = 'dead'
		WHERE status = 'received' AND attempt_count >= $1`,
		maxAttempts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to dead-letter callbacks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCallback(row pgx.Row) (*domain.GatewayCallback, error) {
	var (
		cb       domain.GatewayCallback
		status   string
		metadata []byte
		payload  []byte
	)
	err := row.Scan(
		&cb.ID, &cb.CheckoutRef, &cb.MerchantRef, &cb.ResultCode, &cb.ResultDesc, &metadata, &payload,
		&status, &cb.AttemptCount, &cb.NextRetryAt, &cb.LastError, &cb.Note, &cb.ReceivedAt, &cb.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	cb.Status = domain.CallbackStatus(status)
	if len(payload) > 0 {
		cb.Payload = json.RawMessage(payload)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cb.Metadata); err != nil {
			return nil, fmt.Errorf("decode callback metadata: %w", err)
		}
	}
	return &cb, nil
}
