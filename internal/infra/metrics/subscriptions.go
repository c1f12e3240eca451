package metrics

import (
	"cityguide-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionOutcomesTotal,
		subscriptionsTotal,
		premiumSweptTotal,
	)
}

var (
	subscriptionOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_outcomes_total",
			Help:      "Settlement outcomes applied by the billing cycle.",
		},
		[]string{"outcome"}, // 'renewed', 'premium_renewed', 'premium_removed', 'hidden', 'deactivated'
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Current number of subscriptions by status.",
		},
		[]string{"status"},
	)

	premiumSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "premium_swept_total",
			Help:      "Premium flags retired by the expiry sweep.",
		},
	)
)

func AddOutcome(o model.Outcome, n int) {
	if n <= 0 {
		return
	}
	subscriptionOutcomesTotal.WithLabelValues(string(o)).Add(float64(n))
}

func AddPremiumSwept(n int) {
	premiumSweptTotal.Add(float64(n))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusPendingCancel,
		model.SubscriptionStatusInactive,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
