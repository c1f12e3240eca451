package repository

import (
	"context"

	"cityguide-billing/internal/domain/model"
)

// -----------------------------
// Account ledger
// -----------------------------

type LedgerRepository interface {
	// GetAccount reads the balance. Inside a transaction the row is locked until commit.
	GetAccount(ctx context.Context, tx Tx, userID string) (*model.Account, error)

	// ApplyDelta adds delta to the balance in one conditional statement and appends entry.
	// A debit that would leave the balance below zero fails with domain.ErrInsufficientFunds.
	ApplyDelta(ctx context.Context, tx Tx, userID string, delta int64, entry *model.Transaction) (int64, error)

	// CommitBalance writes newBalance only if the stored balance still equals expected,
	// then appends one row per entry. A lost race yields domain.ErrBalanceChanged.
	CommitBalance(ctx context.Context, tx Tx, userID string, expected, newBalance int64, entries []*model.Transaction) error

	// ListTransactions returns the newest entries first.
	ListTransactions(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Transaction, error)
}
