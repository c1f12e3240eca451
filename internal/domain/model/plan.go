package model

import (
	"strings"
	"time"

	"cityguide-billing/internal/domain"
)

// BillingPeriod is the recurring interval a plan is charged at.
type BillingPeriod string

const (
	PeriodDaily   BillingPeriod = "daily"
	PeriodWeekly  BillingPeriod = "weekly"
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

func (p BillingPeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// BillingPlan is the price list entry a listing subscribes to.
type BillingPlan struct {
	ID            string
	Name          string
	Price         int64
	BillingPeriod BillingPeriod
	CreatedAt     time.Time
}

func (p *BillingPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewBillingPlan validates and constructs a plan.
func NewBillingPlan(id, name string, price int64, period BillingPeriod) (*BillingPlan, error) {
	period = BillingPeriod(strings.ToLower(strings.TrimSpace(string(period))))
	if id == "" || strings.TrimSpace(name) == "" || price < 0 || !period.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &BillingPlan{
		ID:            id,
		Name:          strings.TrimSpace(name),
		Price:         price,
		BillingPeriod: period,
		CreatedAt:     time.Now(),
	}, nil
}
