package repository

import (
	"context"
	"time"

	"cityguide-billing/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	// SelectDue returns active subscriptions with next_billing_date <= now, joined with
	// their plan and listing. Rows whose plan or listing is gone come back with the
	// corresponding part zeroed so the caller can report them.
	SelectDue(ctx context.Context, tx Tx, now time.Time) ([]*model.DueSubscriptionView, error)

	// LockDue re-reads one subscription FOR UPDATE and returns domain.ErrNotFound
	// when it is no longer active or no longer due.
	LockDue(ctx context.Context, tx Tx, id string, now time.Time) (*model.DueSubscriptionView, error)

	FindActiveByPlace(ctx context.Context, tx Tx, placeID string) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, tx Tx, id string, update model.SubscriptionUpdate) (*model.Subscription, error)

	// --- Statistics ---
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
