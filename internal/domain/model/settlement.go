package model

import (
	"fmt"
	"time"
)

// DefaultPremiumFee is the flat per-cycle premium surcharge, independent of the plan period.
const DefaultPremiumFee int64 = 8

// Outcome tags what a settlement did to a subscription.
type Outcome string

const (
	OutcomeRenewed        Outcome = "renewed"
	OutcomePremiumRenewed Outcome = "premium_renewed"
	OutcomePremiumRemoved Outcome = "premium_removed"
	OutcomeHidden         Outcome = "hidden"
	OutcomeDeactivated    Outcome = "deactivated"
)

// SettlementInput is everything a single settlement decision depends on.
type SettlementInput struct {
	Account      Account
	Listing      Listing
	Subscription Subscription
	Plan         BillingPlan
	PremiumFee   int64
	Now          time.Time
}

// SettlementResult describes the writes a settlement needs. It carries no side effects.
type SettlementResult struct {
	PreviousBalance int64
	NewBalance      int64
	Entries         []*Transaction
	Listing         ListingFlagsUpdate
	Subscription    SubscriptionUpdate
	Outcomes        []Outcome
	Warnings        []string
}

func (r SettlementResult) Has(o Outcome) bool {
	for _, x := range r.Outcomes {
		if x == o {
			return true
		}
	}
	return false
}

// Debited is the total amount taken from the account.
func (r SettlementResult) Debited() int64 { return r.PreviousBalance - r.NewBalance }

// Settle decides one billing cycle for a due subscription.
//
// The listing fee is mandatory and checked first; when it cannot be paid the listing is
// hidden and the subscription deactivated without touching the balance. Otherwise the
// premium fee is evaluated against the balance left after the listing fee, unless a
// cancellation is pending, in which case premium is retired without a charge.
func Settle(in SettlementInput) SettlementResult {
	balance := in.Account.Credits
	res := SettlementResult{PreviousBalance: balance, NewBalance: balance}

	listingFee := in.Plan.Price
	if balance < listingFee {
		res.Listing = ListingFlagsUpdate{
			IsHidden:           Bool(true),
			IsPremium:          Bool(false),
			ClearPremiumExpiry: true,
		}
		res.Subscription = SubscriptionUpdate{IsActive: Bool(false)}
		res.Outcomes = append(res.Outcomes, OutcomeHidden, OutcomeDeactivated)
		return res
	}

	balance -= listingFee
	res.Entries = append(res.Entries, NewTransaction(
		in.Subscription.UserID, -listingFee, TransactionSubscriptionRenewed,
		fmt.Sprintf("Listing renewed: %s (%s)", listingLabel(in.Listing), in.Plan.Name), in.Now,
	))
	res.Outcomes = append(res.Outcomes, OutcomeRenewed)

	next, ok := NextBillingDate(in.Plan.BillingPeriod, in.Now)
	if !ok {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"subscription %s: unknown billing period %q on plan %s, using monthly",
			in.Subscription.ID, in.Plan.BillingPeriod, in.Plan.ID))
	}

	// Paying the listing fee always makes the listing visible again.
	res.Listing.IsHidden = Bool(false)

	if in.Listing.IsPremium {
		premiumFee := in.PremiumFee
		switch {
		case in.Subscription.CancelAtPeriodEnd:
			res.Listing.IsPremium = Bool(false)
			res.Listing.ClearPremiumExpiry = true
			res.Outcomes = append(res.Outcomes, OutcomePremiumRemoved)
		case balance >= premiumFee:
			balance -= premiumFee
			res.Entries = append(res.Entries, NewTransaction(
				in.Subscription.UserID, -premiumFee, TransactionPremiumRenewed,
				fmt.Sprintf("Premium renewed: %s", listingLabel(in.Listing)), in.Now,
			))
			res.Listing.PremiumExpiresAt = Time(next)
			res.Outcomes = append(res.Outcomes, OutcomePremiumRenewed)
		default:
			res.Listing.IsPremium = Bool(false)
			res.Listing.ClearPremiumExpiry = true
			res.Outcomes = append(res.Outcomes, OutcomePremiumRemoved)
		}
	}

	res.NewBalance = balance
	res.Subscription = SubscriptionUpdate{
		NextBillingDate:   Time(next),
		CancelAtPeriodEnd: Bool(false),
	}
	return res
}

func listingLabel(l Listing) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}
