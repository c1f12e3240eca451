package metrics

import (
	"cityguide-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		billingRunsTotal,
		billingRunDuration,
		billingCreditsDebited,
		billingErrorsTotal,
		billingWarningsTotal,
	)
}

var (
	billingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_runs_total",
			Help:      "Billing cycle runs by result.",
		},
		[]string{"result"}, // 'ok', 'failed', 'skipped'
	)

	billingRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "billing_run_duration_seconds",
			Help:      "Wall time of a billing cycle run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	billingCreditsDebited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_credits_debited_total",
			Help:      "Credits taken from accounts by billing cycles.",
		},
	)

	billingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_subscription_errors_total",
			Help:      "Subscriptions that failed to settle and were recorded in the run report.",
		},
	)

	billingWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_warnings_total",
			Help:      "Data quality warnings raised during billing, such as unknown billing periods.",
		},
	)
)

func IncBillingRun(result string) {
	billingRunsTotal.WithLabelValues(norm(result)).Inc()
}

// ObserveBillingReport folds a finished run into the counters.
func ObserveBillingReport(r *model.BillingReport) {
	if r == nil {
		return
	}
	billingRunDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	billingCreditsDebited.Add(float64(r.CreditsDebited))
	billingErrorsTotal.Add(float64(len(r.Errors)))
	billingWarningsTotal.Add(float64(len(r.Warnings)))

	AddOutcome(model.OutcomeRenewed, r.Renewed)
	AddOutcome(model.OutcomePremiumRenewed, r.PremiumRenewed)
	AddOutcome(model.OutcomePremiumRemoved, r.PremiumRemoved)
	AddOutcome(model.OutcomeHidden, r.Hidden)
	AddOutcome(model.OutcomeDeactivated, r.Deactivated)
}
