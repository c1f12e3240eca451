package model

import "time"

// EventKind names a billing-driven state transition that owners are told about.
type EventKind string

const (
	EventListingRenewed         EventKind = "listing_renewed"
	EventPremiumRenewed         EventKind = "premium_renewed"
	EventPremiumRemoved         EventKind = "premium_removed"
	EventListingHidden          EventKind = "listing_hidden"
	EventPremiumEnabled         EventKind = "premium_enabled"
	EventPremiumCancelScheduled EventKind = "premium_cancel_scheduled"
)

// BillingEvent is handed to the notification dispatcher after a commit.
type BillingEvent struct {
	Kind       EventKind
	UserID     string
	PlaceID    string
	PlaceName  string
	Language   string
	Amount     int64
	Balance    int64
	OccurredAt time.Time
}

// EventsFor derives the owner notifications for one settlement.
func EventsFor(in SettlementInput, res SettlementResult) []BillingEvent {
	base := BillingEvent{
		UserID:     in.Subscription.UserID,
		PlaceID:    in.Listing.ID,
		PlaceName:  listingLabel(in.Listing),
		Language:   in.Account.Language,
		Balance:    res.NewBalance,
		OccurredAt: in.Now,
	}
	var out []BillingEvent
	for _, o := range res.Outcomes {
		ev := base
		switch o {
		case OutcomeRenewed:
			ev.Kind, ev.Amount = EventListingRenewed, in.Plan.Price
		case OutcomePremiumRenewed:
			ev.Kind, ev.Amount = EventPremiumRenewed, in.PremiumFee
		case OutcomePremiumRemoved:
			ev.Kind = EventPremiumRemoved
		case OutcomeHidden:
			ev.Kind, ev.Amount = EventListingHidden, in.Plan.Price
		default:
			continue
		}
		out = append(out, ev)
	}
	return out
}
