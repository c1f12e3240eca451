package model

import "time"

// SubscriptionError is a per-subscription failure that did not abort the run.
type SubscriptionError struct {
	SubscriptionID string `json:"subscription_id"`
	Message        string `json:"message"`
}

// BillingReport summarizes one billing cycle run.
type BillingReport struct {
	RunID          string              `json:"run_id"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	Selected       int                 `json:"selected"`
	Processed      int                 `json:"processed"`
	Renewed        int                 `json:"renewed"`
	Hidden         int                 `json:"hidden"`
	Deactivated    int                 `json:"deactivated"`
	PremiumRenewed int                 `json:"premium_renewed"`
	PremiumRemoved int                 `json:"premium_removed"`
	Skipped        int                 `json:"skipped"`
	CreditsDebited int64               `json:"credits_debited"`
	Errors         []SubscriptionError `json:"errors"`
	Warnings       []string            `json:"warnings"`
}

// Record folds one settled subscription into the totals.
func (r *BillingReport) Record(res SettlementResult) {
	r.Processed++
	for _, o := range res.Outcomes {
		switch o {
		case OutcomeRenewed:
			r.Renewed++
		case OutcomeHidden:
			r.Hidden++
		case OutcomeDeactivated:
			r.Deactivated++
		case OutcomePremiumRenewed:
			r.PremiumRenewed++
		case OutcomePremiumRemoved:
			r.PremiumRemoved++
		}
	}
	r.CreditsDebited += res.Debited()
	r.Warnings = append(r.Warnings, res.Warnings...)
}

func (r *BillingReport) Fail(subscriptionID string, err error) {
	r.Errors = append(r.Errors, SubscriptionError{SubscriptionID: subscriptionID, Message: err.Error()})
}

func (r *BillingReport) Merge(o *BillingReport) {
	r.Selected += o.Selected
	r.Processed += o.Processed
	r.Renewed += o.Renewed
	r.Hidden += o.Hidden
	r.Deactivated += o.Deactivated
	r.PremiumRenewed += o.PremiumRenewed
	r.PremiumRemoved += o.PremiumRemoved
	r.Skipped += o.Skipped
	r.CreditsDebited += o.CreditsDebited
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}
