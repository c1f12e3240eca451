//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/usecase"
)

func TestLedgerUseCase(t *testing.T) {
	ctx := context.Background()

	newUC := func(store *memStore) interface {
		Balance(ctx context.Context, userID string) (*model.Account, error)
		History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
		Adjust(ctx context.Context, userID string, delta int64, description string) (int64, error)
	} {
		return usecase.NewLedgerUseCase(store, NewMockTxManager(store), newTestLogger())
	}

	t.Run("should credit an account and record an adjustment", func(t *testing.T) {
		store := newMemStore()
		store.putAccount("u1", 10)

		balance, err := newUC(store).Adjust(ctx, "u1", 15, "")

		require.NoError(t, err)
		assert.Equal(t, int64(25), balance)
		entries := store.entriesFor("u1")
		require.Len(t, entries, 1)
		assert.Equal(t, model.TransactionAdminAdjustment, entries[0].Type)
		assert.Equal(t, "Manual adjustment", entries[0].Description)
	})

	t.Run("should refuse a debit below zero", func(t *testing.T) {
		store := newMemStore()
		store.putAccount("u1", 10)

		_, err := newUC(store).Adjust(ctx, "u1", -11, "correction")

		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, int64(10), store.credits("u1"))
		assert.Empty(t, store.entriesFor("u1"))
	})

	t.Run("should reject a zero delta", func(t *testing.T) {
		_, err := newUC(newMemStore()).Adjust(ctx, "u1", 0, "noop")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("should report a missing account", func(t *testing.T) {
		_, err := newUC(newMemStore()).Balance(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("should list history newest first and cap the limit", func(t *testing.T) {
		store := newMemStore()
		store.putAccount("u1", 0)
		uc := newUC(store)
		for i := 0; i < 3; i++ {
			_, err := uc.Adjust(ctx, "u1", int64(i+1), "top up")
			require.NoError(t, err)
		}

		all, err := uc.History(ctx, "u1", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.GreaterOrEqual(t, all[0].ID, all[1].ID)

		two, err := uc.History(ctx, "u1", 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)
	})
}
