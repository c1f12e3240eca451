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

// Ensure interface compliance
var _ repository.BillingPlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	db DB
}

func NewPostgresPlanRepo(db DB) *PostgresPlanRepo {
	return &PostgresPlanRepo{db: db}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.BillingPlan) error {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO billing_plans (id, name, price, billing_period, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
  SET name           = EXCLUDED.name,
      price          = EXCLUDED.price,
      billing_period = EXCLUDED.billing_period`
	if _, err := exec.Exec(ctx, q, plan.ID, plan.Name, plan.Price, string(plan.BillingPeriod), plan.CreatedAt); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BillingPlan, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, name, price, billing_period, created_at
  FROM billing_plans
 WHERE id = $1`
	var p model.BillingPlan
	var period string
	if err := exec.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.Price, &period, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	p.BillingPeriod = model.BillingPeriod(period)
	return &p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.BillingPlan, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, name, price, billing_period, created_at
  FROM billing_plans
 ORDER BY name, id`
	rows, err := exec.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*model.BillingPlan
	for rows.Next() {
		var p model.BillingPlan
		var period string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &period, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		p.BillingPeriod = model.BillingPeriod(period)
		out = append(out, &p)
	}
	return out, rows.Err()
}
