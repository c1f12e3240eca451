package repository

import (
	"context"

	"cityguide-billing/internal/domain/model"
)

// BillingPlanRepository is the port for plan persistence.
type BillingPlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.BillingPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BillingPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.BillingPlan, error)
}
