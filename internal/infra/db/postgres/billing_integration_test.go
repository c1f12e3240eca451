//go:build integration

package postgres

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
	"cityguide-billing/internal/usecase"
)

func seed(t *testing.T, sql string, args ...interface{}) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

func newBilling(t *testing.T) (usecase.BillingOptions, *PostgresLedgerRepo, *PostgresListingRepo, *PostgresSubscriptionRepo, *TxManager) {
	t.Helper()
	return usecase.BillingOptions{PremiumFee: 8},
		NewPostgresLedgerRepo(testPool),
		NewPostgresListingRepo(testPool),
		NewPostgresSubscriptionRepo(testPool),
		NewTxManager(testPool)
}

func TestBillingCycle_Postgres(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(-time.Hour)

	t.Run("should renew listing and premium in one balance write", func(t *testing.T) {
		cleanup(t)
		seed(t, `INSERT INTO profiles (user_id, credits) VALUES ('u1', 20)`)
		seed(t, `INSERT INTO billing_plans (id, name, price, billing_period) VALUES ('basic', 'Basic', 10, 'monthly')`)
		seed(t, `INSERT INTO places (id, owner_id, name, is_premium, premium_expires_at) VALUES ('p1', 'u1', 'Cafe', TRUE, $1)`, due)
		seed(t, `INSERT INTO listing_subscriptions (id, user_id, place_id, plan_id, next_billing_date) VALUES ('s1', 'u1', 'p1', 'basic', $1)`, due)

		opts, ledger, listings, subs, tm := newBilling(t)
		uc := usecase.NewBillingUseCase(subs, ledger, listings, tm, nil, opts, &logger)

		report, err := uc.RunBillingCycle(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Renewed)
		assert.Equal(t, 1, report.PremiumRenewed)
		assert.Empty(t, report.Errors)

		acc, err := ledger.GetAccount(ctx, repository.NoTX, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), acc.Credits)

		txs, err := ledger.ListTransactions(ctx, repository.NoTX, "u1", 10)
		require.NoError(t, err)
		assert.Len(t, txs, 2)

		l, err := listings.GetListing(ctx, repository.NoTX, "p1")
		require.NoError(t, err)
		assert.True(t, l.IsPremium)
		require.NotNil(t, l.PremiumExpiresAt)
		assert.True(t, l.PremiumExpiresAt.After(now))

		again, err := uc.RunBillingCycle(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Selected)
	})

	t.Run("should hide and deactivate when credits are short", func(t *testing.T) {
		cleanup(t)
		seed(t, `INSERT INTO profiles (user_id, credits) VALUES ('u1', 5)`)
		seed(t, `INSERT INTO billing_plans (id, name, price, billing_period) VALUES ('basic', 'Basic', 10, 'weekly')`)
		seed(t, `INSERT INTO places (id, owner_id, name) VALUES ('p1', 'u1', 'Cafe')`)
		seed(t, `INSERT INTO listing_subscriptions (id, user_id, place_id, plan_id, next_billing_date) VALUES ('s1', 'u1', 'p1', 'basic', $1)`, due)

		opts, ledger, listings, subs, tm := newBilling(t)
		uc := usecase.NewBillingUseCase(subs, ledger, listings, tm, nil, opts, &logger)

		report, err := uc.RunBillingCycle(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Hidden)
		assert.Equal(t, 1, report.Deactivated)

		acc, err := ledger.GetAccount(ctx, repository.NoTX, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), acc.Credits)

		l, err := listings.GetListing(ctx, repository.NoTX, "p1")
		require.NoError(t, err)
		assert.True(t, l.IsHidden)

		counts, err := subs.CountByStatus(ctx, repository.NoTX)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[model.SubscriptionStatusInactive])
	})

	t.Run("should report a subscription whose plan is gone", func(t *testing.T) {
		cleanup(t)
		seed(t, `INSERT INTO profiles (user_id, credits) VALUES ('u1', 50)`)
		seed(t, `INSERT INTO places (id, owner_id, name) VALUES ('p1', 'u1', 'Cafe')`)
		seed(t, `INSERT INTO listing_subscriptions (id, user_id, place_id, plan_id, next_billing_date) VALUES ('s1', 'u1', 'p1', 'gone', $1)`, due)

		opts, ledger, listings, subs, tm := newBilling(t)
		uc := usecase.NewBillingUseCase(subs, ledger, listings, tm, nil, opts, &logger)

		report, err := uc.RunBillingCycle(ctx, now)
		require.NoError(t, err)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "s1", report.Errors[0].SubscriptionID)

		acc, err := ledger.GetAccount(ctx, repository.NoTX, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(50), acc.Credits)
	})

	t.Run("should sweep expired premium outside the cycle", func(t *testing.T) {
		cleanup(t)
		seed(t, `INSERT INTO profiles (user_id, credits) VALUES ('u1', 0)`)
		seed(t, `INSERT INTO places (id, owner_id, name, is_premium, premium_expires_at) VALUES ('p1', 'u1', 'Cafe', TRUE, $1)`, due)
		seed(t, `INSERT INTO places (id, owner_id, name, is_premium, premium_expires_at) VALUES ('p2', 'u1', 'Bar', TRUE, $1)`, now.Add(time.Hour))

		opts, ledger, listings, subs, tm := newBilling(t)
		uc := usecase.NewBillingUseCase(subs, ledger, listings, tm, nil, opts, &logger)

		swept, err := uc.SweepExpiredPremium(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, swept)

		p1, err := listings.GetListing(ctx, repository.NoTX, "p1")
		require.NoError(t, err)
		assert.False(t, p1.IsPremium)
		assert.Nil(t, p1.PremiumExpiresAt)

		p2, err := listings.GetListing(ctx, repository.NoTX, "p2")
		require.NoError(t, err)
		assert.True(t, p2.IsPremium)
	})

	t.Run("should serialize a premium toggle with a running cycle", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			cleanup(t)
			seed(t, `INSERT INTO profiles (user_id, credits) VALUES ('u1', 100)`)
			seed(t, `INSERT INTO billing_plans (id, name, price, billing_period) VALUES ('basic', 'Basic', 10, 'monthly')`)
			seed(t, `INSERT INTO places (id, owner_id, name) VALUES ('p1', 'u1', 'Cafe')`)
			seed(t, `INSERT INTO listing_subscriptions (id, user_id, place_id, plan_id, next_billing_date) VALUES ('s1', 'u1', 'p1', 'basic', $1)`, due)

			opts, ledger, listings, subs, tm := newBilling(t)
			billing := usecase.NewBillingUseCase(subs, ledger, listings, tm, nil, opts, &logger)
			premium := usecase.NewPremiumUseCase(listings, subs, ledger, tm, nil, 8, &logger)

			var (
				wg        sync.WaitGroup
				report    *model.BillingReport
				runErr    error
				toggleErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				report, runErr = billing.RunBillingCycle(ctx, now)
			}()
			go func() {
				defer wg.Done()
				_, toggleErr = premium.SetPremium(ctx, "u1", "p1", true)
			}()
			wg.Wait()

			require.NoError(t, runErr)
			require.NoError(t, toggleErr)
			assert.Empty(t, report.Errors)
			assert.Equal(t, 1, report.Renewed)

			l, err := listings.GetListing(ctx, repository.NoTX, "p1")
			require.NoError(t, err)
			assert.True(t, l.IsPremium)
			require.NotNil(t, l.PremiumExpiresAt)
			assert.True(t, l.PremiumExpiresAt.After(now))

			// toggle first: 8 + 10 + 8 renewal; cycle first: 10 + 8
			acc, err := ledger.GetAccount(ctx, repository.NoTX, "u1")
			require.NoError(t, err)
			assert.Contains(t, []int64{74, 82}, acc.Credits)
		}
	})
}
