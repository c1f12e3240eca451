package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*PostgresLedgerRepo)(nil)

// PostgresLedgerRepo keeps balances on profiles and the audit log in credit_transactions.
type PostgresLedgerRepo struct {
	db DB
}

func NewPostgresLedgerRepo(db DB) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{db: db}
}

const selectAccountSQL = `
SELECT user_id, credits, language, updated_at
  FROM profiles
 WHERE user_id = $1`

func (r *PostgresLedgerRepo) GetAccount(ctx context.Context, tx repository.Tx, userID string) (*model.Account, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q := selectAccountSQL
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	var a model.Account
	if err := exec.QueryRow(ctx, q, userID).Scan(&a.UserID, &a.Credits, &a.Language, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (r *PostgresLedgerRepo) ApplyDelta(ctx context.Context, tx repository.Tx, userID string, delta int64, entry *model.Transaction) (int64, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return 0, err
	}
	const q = `
UPDATE profiles
   SET credits = credits + $2, updated_at = NOW()
 WHERE user_id = $1 AND credits + $2 >= 0
RETURNING credits`
	var balance int64
	if err := exec.QueryRow(ctx, q, userID, delta).Scan(&balance); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("apply delta: %w", err)
		}
		var exists bool
		if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("apply delta: %w", err)
		}
		if !exists {
			return 0, domain.ErrAccountNotFound
		}
		return 0, domain.ErrInsufficientFunds
	}
	if entry != nil {
		if err := insertEntry(ctx, exec, entry); err != nil {
			return 0, err
		}
	}
	return balance, nil
}

func (r *PostgresLedgerRepo) CommitBalance(ctx context.Context, tx repository.Tx, userID string, expected, newBalance int64, entries []*model.Transaction) error {
	if newBalance < 0 {
		return domain.ErrInsufficientFunds
	}
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE profiles
   SET credits = $3, updated_at = NOW()
 WHERE user_id = $1 AND credits = $2`
	tag, err := exec.Exec(ctx, q, userID, expected, newBalance)
	if err != nil {
		return fmt.Errorf("commit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBalanceChanged
	}
	for _, e := range entries {
		if err := insertEntry(ctx, exec, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresLedgerRepo) ListTransactions(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Transaction, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, user_id, amount, type, description, created_at
  FROM credit_transactions
 WHERE user_id = $1
 ORDER BY created_at DESC, id DESC
 LIMIT $2`
	rows, err := exec.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		var t model.Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		t.Type = model.TransactionType(typ)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func insertEntry(ctx context.Context, exec executor, e *model.Transaction) error {
	const q = `
INSERT INTO credit_transactions (id, user_id, amount, type, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := exec.Exec(ctx, q, e.ID, e.UserID, e.Amount, string(e.Type), e.Description, e.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
