//go:build !integration

package metrics

import (
	"testing"
	"time"

	"cityguide-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegisterWith(reg)
	MustRegisterWith(reg)

	IncBillingRun("OK")
	count, err := testutil.GatherAndCount(reg, "cityguide_billing_runs_total")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one series, got %d", count)
	}
}

func TestObserveBillingReport(t *testing.T) {
	before := testutil.ToFloat64(billingCreditsDebited)
	errBefore := testutil.ToFloat64(billingErrorsTotal)
	hiddenBefore := testutil.ToFloat64(subscriptionOutcomesTotal.WithLabelValues("hidden"))

	start := time.Now()
	ObserveBillingReport(&model.BillingReport{
		StartedAt:      start,
		FinishedAt:     start.Add(time.Second),
		CreditsDebited: 28,
		Hidden:         2,
		Errors:         []model.SubscriptionError{{SubscriptionID: "s", Message: "boom"}},
	})
	ObserveBillingReport(nil)

	if got := testutil.ToFloat64(billingCreditsDebited) - before; got != 28 {
		t.Errorf("expected 28 credits debited, got %v", got)
	}
	if got := testutil.ToFloat64(billingErrorsTotal) - errBefore; got != 1 {
		t.Errorf("expected one error, got %v", got)
	}
	if got := testutil.ToFloat64(subscriptionOutcomesTotal.WithLabelValues("hidden")) - hiddenBefore; got != 2 {
		t.Errorf("expected 2 hidden outcomes, got %v", got)
	}
}

func TestSetSubscriptionsTotal(t *testing.T) {
	SetSubscriptionsTotal(map[model.SubscriptionStatus]int{model.SubscriptionStatusActive: 3})

	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("active")); got != 3 {
		t.Errorf("expected 3 active, got %v", got)
	}
	if got := testutil.ToFloat64(subscriptionsTotal.WithLabelValues("inactive")); got != 0 {
		t.Errorf("expected 0 inactive, got %v", got)
	}
}
