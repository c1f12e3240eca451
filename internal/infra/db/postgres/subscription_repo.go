package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

const subscriptionColumns = "id, user_id, place_id, plan_id, next_billing_date, is_active, cancel_at_period_end, created_at, updated_at"

// selectDueSQL joins plan and listing with LEFT JOINs so a dangling reference
// surfaces as an empty part of the view instead of silently dropping the row.
const selectDueSQL = `
SELECT s.id, s.user_id, s.place_id, s.plan_id, s.next_billing_date, s.is_active,
       s.cancel_at_period_end, s.created_at, s.updated_at,
       bp.id, bp.name, bp.price, bp.billing_period,
       p.id, p.owner_id, p.name, p.is_premium, p.premium_expires_at, p.is_hidden
  FROM listing_subscriptions s
  LEFT JOIN billing_plans bp ON bp.id = s.plan_id
  LEFT JOIN places p ON p.id = s.place_id
 WHERE s.is_active AND s.next_billing_date <= $1`

type PostgresSubscriptionRepo struct {
	db DB
}

func NewPostgresSubscriptionRepo(db DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.PlaceID, &s.PlanID, &s.NextBillingDate, &s.IsActive,
		&s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanDueView(row pgx.Row) (*model.DueSubscriptionView, error) {
	var (
		v         model.DueSubscriptionView
		planID    *string
		planName  *string
		planPrice *int64
		period    *string
		placeID   *string
		ownerID   *string
		placeName *string
		premium   *bool
		expires   *time.Time
		hidden    *bool
	)
	s := &v.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.PlaceID, &s.PlanID, &s.NextBillingDate, &s.IsActive,
		&s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt,
		&planID, &planName, &planPrice, &period,
		&placeID, &ownerID, &placeName, &premium, &expires, &hidden); err != nil {
		return nil, err
	}
	if planID != nil {
		v.Plan = model.BillingPlan{
			ID:            *planID,
			Name:          deref(planName),
			Price:         deref(planPrice),
			BillingPeriod: model.BillingPeriod(deref(period)),
		}
	}
	if placeID != nil {
		v.Listing = model.Listing{
			ID:               *placeID,
			OwnerID:          deref(ownerID),
			Name:             deref(placeName),
			IsPremium:        deref(premium),
			PremiumExpiresAt: expires,
			IsHidden:         deref(hidden),
		}
	}
	return &v, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (r *PostgresSubscriptionRepo) SelectDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.DueSubscriptionView, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Query(ctx, selectDueSQL+"\n ORDER BY s.next_billing_date, s.id", now)
	if err != nil {
		return nil, fmt.Errorf("select due: %w", err)
	}
	defer rows.Close()

	var out []*model.DueSubscriptionView
	for rows.Next() {
		v, err := scanDueView(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select due: %w", err)
	}
	return out, nil
}

func (r *PostgresSubscriptionRepo) LockDue(ctx context.Context, tx repository.Tx, id string, now time.Time) (*model.DueSubscriptionView, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q := selectDueSQL + " AND s.id = $2"
	if inTx(tx) {
		q += " FOR UPDATE OF s"
	}
	v, err := scanDueView(exec.QueryRow(ctx, q, now, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lock due subscription: %w", err)
	}
	return v, nil
}

func (r *PostgresSubscriptionRepo) FindActiveByPlace(ctx context.Context, tx repository.Tx, placeID string) (*model.Subscription, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + subscriptionColumns + `
  FROM listing_subscriptions
 WHERE place_id = $1 AND is_active
 ORDER BY created_at DESC
 LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	s, err := scanSubscription(exec.QueryRow(ctx, q, placeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return s, nil
}

func buildSubscriptionUpdate(id string, u model.SubscriptionUpdate) (string, []interface{}, error) {
	b := psql.Update("listing_subscriptions")
	if u.NextBillingDate != nil {
		b = b.Set("next_billing_date", *u.NextBillingDate)
	}
	if u.IsActive != nil {
		b = b.Set("is_active", *u.IsActive)
	}
	if u.CancelAtPeriodEnd != nil {
		b = b.Set("cancel_at_period_end", *u.CancelAtPeriodEnd)
	}
	return b.Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + subscriptionColumns).
		ToSql()
}

func (r *PostgresSubscriptionRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, id string, u model.SubscriptionUpdate) (*model.Subscription, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var row pgx.Row
	if u.IsEmpty() {
		row = exec.QueryRow(ctx, "SELECT "+subscriptionColumns+" FROM listing_subscriptions WHERE id = $1", id)
	} else {
		q, args, err := buildSubscriptionUpdate(id, u)
		if err != nil {
			return nil, fmt.Errorf("build subscription update: %w", err)
		}
		row = exec.QueryRow(ctx, q, args...)
	}
	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT CASE
         WHEN NOT is_active THEN 'inactive'
         WHEN cancel_at_period_end THEN 'pending_cancel'
         ELSE 'active'
       END AS status,
       COUNT(*)
  FROM listing_subscriptions
 GROUP BY 1`
	rows, err := exec.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out[model.SubscriptionStatus(status)] = int(n)
	}
	return out, rows.Err()
}
