package model

import "time"

// NextBillingDate advances from by one billing period.
// Months and years use calendar arithmetic (time.AddDate), so day-of-month is kept
// and out-of-range days roll over the same way AddDate normalizes them.
// Unknown periods fall back to monthly and report ok=false.
func NextBillingDate(period BillingPeriod, from time.Time) (next time.Time, ok bool) {
	switch period {
	case PeriodDaily:
		return from.AddDate(0, 0, 1), true
	case PeriodWeekly:
		return from.AddDate(0, 0, 7), true
	case PeriodMonthly:
		return from.AddDate(0, 1, 0), true
	case PeriodYearly:
		return from.AddDate(1, 0, 0), true
	default:
		return from.AddDate(0, 1, 0), false
	}
}
