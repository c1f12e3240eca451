package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/logging"
)

// Compile-time check
var _ port.LedgerManager = (*ledgerUC)(nil)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type ledgerUC struct {
	ledger repository.LedgerRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewLedgerUseCase(ledger repository.LedgerRepository, tm repository.TransactionManager, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{ledger: ledger, tm: tm, log: logger}
}

func (l *ledgerUC) Balance(ctx context.Context, userID string) (*model.Account, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Balance")()
	return l.ledger.GetAccount(ctx, repository.NoTX, userID)
}

func (l *ledgerUC) History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.History")()
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return l.ledger.ListTransactions(ctx, repository.NoTX, userID, limit)
}

// Adjust credits or debits an account on behalf of an administrator.
func (l *ledgerUC) Adjust(ctx context.Context, userID string, delta int64, description string) (int64, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Adjust")()
	if strings.TrimSpace(userID) == "" || delta == 0 {
		return 0, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(description) == "" {
		description = "Manual adjustment"
	}

	var balance int64
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		entry := model.NewTransaction(userID, delta, model.TransactionAdminAdjustment, description, time.Now())
		nb, err := l.ledger.ApplyDelta(ctx, tx, userID, delta, entry)
		if err != nil {
			return err
		}
		balance = nb
		return nil
	})
	if err != nil {
		return 0, err
	}
	logging.With(ctx, l.log).Info().
		Str("account", userID).
		Int64("delta", delta).
		Int64("balance", balance).
		Msg("ledger adjusted")
	return balance, nil
}
