package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/jackc/pgx/v5"
)

type LedgerRepository struct {
	db *DB
	q  Executor
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db, q: db.Pool}
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

// GetAccount returns a zero-balance account at version 0 for users with no entries yet.
func (r *LedgerRepository) GetAccount(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	query := `SELECT user_id, balance, version, updated_at FROM ledger_accounts WHERE user_id = $1`

	var acct domain.LedgerAccount
	err := r.q.QueryRow(ctx, query, userID).Scan(&acct.UserID, &acct.Balance, &acct.Version, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.LedgerAccount{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger account: %w", err)
	}
	return &acct, nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT id, user_id, delta, reason, related_payment_id, note, actor, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
		var (
			e      domain.LedgerEntry
			reason string
		)
		err := row.Scan(&e.ID, &e.UserID, &e.Delta, &reason, &e.RelatedPaymentID, &e.Note, &e.Actor, &e.CreatedAt)
		e.Reason = domain.LedgerReason(reason)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ledger entries: %w", err)
	}
	return entries, nil
}

// ApplyEntry appends entry and moves the balance if the account is still at
// expectedVersion and would not go negative. Otherwise it returns ErrConflict.
func (r *LedgerRepository) ApplyEntry(ctx context.Context, entry *domain.LedgerEntry, expectedVersion int64) (*domain.LedgerAccount, error) {
	var acct *domain.LedgerAccount

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			updated domain.LedgerAccount
			err     error
		)
		if expectedVersion == 0 {
			err = tx.QueryRow(ctx, `
				INSERT INTO ledger_accounts (user_id, balance, version, updated_at)
				SELECT $1::text, $2::bigint, 1, $3::timestamptz WHERE $2::bigint >= 0
				ON CONFLICT (user_id) DO NOTHING
				RETURNING user_id, balance, version, updated_at`,
				entry.UserID, entry.Delta, entry.CreatedAt,
			).Scan(&updated.UserID, &updated.Balance, &updated.Version, &updated.UpdatedAt)
		} else {
			err = tx.QueryRow(ctx, `
				UPDATE ledger_accounts
				SET balance = balance + $2, version = version + 1, updated_at = $3
				WHERE user_id = $1 AND version = $4 AND balance + $2 >= 0
				RETURNING user_id, balance, version, updated_at`,
				entry.UserID, entry.Delta, entry.CreatedAt, expectedVersion,
			).Scan(&updated.UserID, &updated.Balance, &updated.Version, &updated.UpdatedAt)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to update ledger account: %w", err)
		}

		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
		acct = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func insertEntry(ctx context.Context, q Executor, e *domain.LedgerEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, delta, reason, related_payment_id, note, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Delta, string(e.Reason), e.RelatedPaymentID, e.Note, e.Actor, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// creditAccount upserts the balance unconditionally; callers guard it.
func creditAccount(ctx context.Context, q Executor, userID string, delta int64, at time.Time) (*domain.LedgerAccount, error) {
	var acct domain.LedgerAccount
	err := q.QueryRow(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, version, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance,
		    version = ledger_accounts.version + 1,
		    updated_at = EXCLUDED.updated_at
		RETURNING user_id, balance, version, updated_at`,
		userID, delta, at,
	).Scan(&acct.UserID, &acct.Balance, &acct.Version, &acct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to credit ledger account: %w", err)
	}
	return &acct, nil
}
