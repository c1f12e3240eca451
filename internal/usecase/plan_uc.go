package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/logging"
)

// Compile-time check
var _ port.PlanManager = (*planUC)(nil)

// planUC manages billing plans.
type planUC struct {
	repo repository.BillingPlanRepository
	log  *zerolog.Logger
}

func NewPlanUseCase(repo repository.BillingPlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{repo: repo, log: logger}
}

// Create validates and stores a new plan.
func (uc *planUC) Create(ctx context.Context, name string, price int64, period model.BillingPeriod) (*model.BillingPlan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.Create")()
	plan, err := model.NewBillingPlan(uuid.NewString(), name, price, period)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	uc.log.Info().Str("plan_id", plan.ID).Str("period", string(plan.BillingPeriod)).Int64("price", plan.Price).Msg("plan created")
	return plan, nil
}

// Get retrieves a plan by ID.
func (uc *planUC) Get(ctx context.Context, id string) (*model.BillingPlan, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

// List returns all plans.
func (uc *planUC) List(ctx context.Context) ([]*model.BillingPlan, error) {
	return uc.repo.ListAll(ctx, repository.NoTX)
}
