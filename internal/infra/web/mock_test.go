//go:build !integration

package web

import (
	"context"

	"cityguide-billing/internal/domain/model"
)

// --- Mock Use Cases (Ports) ---

type mockPremium struct {
	SetPremiumFunc func(ctx context.Context, callerID, placeID string, enabled bool) (*model.Listing, error)
}

func (m *mockPremium) SetPremium(ctx context.Context, callerID, placeID string, enabled bool) (*model.Listing, error) {
	return m.SetPremiumFunc(ctx, callerID, placeID, enabled)
}

type mockLedger struct {
	BalanceFunc func(ctx context.Context, userID string) (*model.Account, error)
	HistoryFunc func(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
	AdjustFunc  func(ctx context.Context, userID string, delta int64, description string) (int64, error)
}

func (m *mockLedger) Balance(ctx context.Context, userID string) (*model.Account, error) {
	return m.BalanceFunc(ctx, userID)
}

func (m *mockLedger) History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	return m.HistoryFunc(ctx, userID, limit)
}

func (m *mockLedger) Adjust(ctx context.Context, userID string, delta int64, description string) (int64, error) {
	return m.AdjustFunc(ctx, userID, delta, description)
}

type mockPlans struct {
	CreateFunc func(ctx context.Context, name string, price int64, period model.BillingPeriod) (*model.BillingPlan, error)
	GetFunc    func(ctx context.Context, id string) (*model.BillingPlan, error)
	ListFunc   func(ctx context.Context) ([]*model.BillingPlan, error)
}

func (m *mockPlans) Create(ctx context.Context, name string, price int64, period model.BillingPeriod) (*model.BillingPlan, error) {
	return m.CreateFunc(ctx, name, price, period)
}

func (m *mockPlans) Get(ctx context.Context, id string) (*model.BillingPlan, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockPlans) List(ctx context.Context) ([]*model.BillingPlan, error) {
	return m.ListFunc(ctx)
}

type mockCycle struct {
	RunOnceFunc func(ctx context.Context) (*model.BillingReport, error)
}

func (m *mockCycle) RunOnce(ctx context.Context) (*model.BillingReport, error) {
	return m.RunOnceFunc(ctx)
}

type mockSweeper struct {
	SweepFunc func(ctx context.Context) (int, error)
}

func (m *mockSweeper) Sweep(ctx context.Context) (int, error) {
	return m.SweepFunc(ctx)
}
