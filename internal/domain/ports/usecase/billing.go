package usecase

import (
	"context"
	"time"

	"cityguide-billing/internal/domain/model"
)

// BillingRunner is what schedulers and the admin API need from the billing processor.
type BillingRunner interface {
	RunBillingCycle(ctx context.Context, now time.Time) (*model.BillingReport, error)
	SweepExpiredPremium(ctx context.Context, now time.Time) (int, error)
}

// PremiumToggler is the owner-facing premium switch.
type PremiumToggler interface {
	SetPremium(ctx context.Context, callerID, placeID string, enabled bool) (*model.Listing, error)
}

// LedgerManager exposes balance administration.
type LedgerManager interface {
	Balance(ctx context.Context, userID string) (*model.Account, error)
	History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
	Adjust(ctx context.Context, userID string, delta int64, description string) (int64, error)
}

// PlanManager exposes billing plan administration.
type PlanManager interface {
	Create(ctx context.Context, name string, price int64, period model.BillingPeriod) (*model.BillingPlan, error)
	Get(ctx context.Context, id string) (*model.BillingPlan, error)
	List(ctx context.Context) ([]*model.BillingPlan, error)
}
