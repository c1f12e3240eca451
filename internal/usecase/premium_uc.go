package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/adapter"
	"cityguide-billing/internal/domain/ports/repository"
	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/logging"
)

// Compile-time check
var _ port.PremiumToggler = (*premiumUC)(nil)

type premiumUC struct {
	listings repository.ListingRepository
	subs     repository.SubscriptionRepository
	ledger   repository.LedgerRepository
	tm       repository.TransactionManager
	events   adapter.EventDispatcher
	fee      int64
	now      func() time.Time
	log      *zerolog.Logger
}

func NewPremiumUseCase(
	listings repository.ListingRepository,
	subs repository.SubscriptionRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	events adapter.EventDispatcher,
	premiumFee int64,
	logger *zerolog.Logger,
) *premiumUC {
	if events == nil {
		events = discardEvents{}
	}
	if premiumFee <= 0 {
		premiumFee = model.DefaultPremiumFee
	}
	return &premiumUC{
		listings: listings,
		subs:     subs,
		ledger:   ledger,
		tm:       tm,
		events:   events,
		fee:      premiumFee,
		now:      time.Now,
		log:      logger,
	}
}

// SetPremium switches premium on or off for a listing owned by callerID.
//
// Enabling charges the premium fee once and aligns the expiry with the subscription's
// next billing date; re-enabling during a pending cancellation only withdraws the
// cancellation. Disabling schedules removal at the end of the paid period.
func (p *premiumUC) SetPremium(ctx context.Context, callerID, placeID string, enabled bool) (*model.Listing, error) {
	defer logging.TraceDuration(p.log, "PremiumUC.SetPremium")()

	var (
		result *model.Listing
		event  *model.BillingEvent
	)
	// Lock order is subscription, listing, account, matching the billing cycle.
	err := p.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		sub, subErr := p.subs.FindActiveByPlace(ctx, tx, placeID)
		if subErr != nil && !errors.Is(subErr, domain.ErrNotFound) {
			return subErr
		}
		l, err := p.listings.GetListing(ctx, tx, placeID)
		if err != nil {
			return err
		}
		if l.OwnerID != callerID {
			return domain.ErrForbidden
		}
		if subErr != nil {
			return domain.ErrNoActiveSubscription
		}

		result = l
		now := p.now()

		if !enabled {
			if !l.IsPremium || sub.CancelAtPeriodEnd {
				return nil
			}
			if _, err := p.subs.UpdateSubscription(ctx, tx, sub.ID, model.SubscriptionUpdate{CancelAtPeriodEnd: model.Bool(true)}); err != nil {
				return fmt.Errorf("schedule premium cancellation: %w", err)
			}
			lang, err := p.ownerLanguage(ctx, tx, callerID)
			if err != nil {
				return err
			}
			event = &model.BillingEvent{Kind: model.EventPremiumCancelScheduled, Language: lang, OccurredAt: now}
			return nil
		}

		if l.IsPremium {
			if sub.CancelAtPeriodEnd {
				if _, err := p.subs.UpdateSubscription(ctx, tx, sub.ID, model.SubscriptionUpdate{CancelAtPeriodEnd: model.Bool(false)}); err != nil {
					return fmt.Errorf("withdraw premium cancellation: %w", err)
				}
			}
			return nil
		}

		lang, err := p.ownerLanguage(ctx, tx, callerID)
		if err != nil {
			return err
		}
		entry := model.NewTransaction(callerID, -p.fee, model.TransactionPremiumActivated,
			fmt.Sprintf("Premium activated: %s", l.Name), now)
		balance, err := p.ledger.ApplyDelta(ctx, tx, callerID, -p.fee, entry)
		if err != nil {
			return err
		}
		if sub.CancelAtPeriodEnd {
			// A cancellation left over on a non-premium listing must not retire the new premium.
			if _, err := p.subs.UpdateSubscription(ctx, tx, sub.ID, model.SubscriptionUpdate{CancelAtPeriodEnd: model.Bool(false)}); err != nil {
				return fmt.Errorf("reset stale cancellation: %w", err)
			}
		}
		updated, err := p.listings.UpdateListingFlags(ctx, tx, placeID, model.ListingFlagsUpdate{
			IsPremium:        model.Bool(true),
			PremiumExpiresAt: model.Time(sub.NextBillingDate),
		})
		if err != nil {
			return fmt.Errorf("enable premium: %w", err)
		}
		result = updated
		event = &model.BillingEvent{Kind: model.EventPremiumEnabled, Language: lang, Amount: p.fee, Balance: balance, OccurredAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		event.UserID = callerID
		event.PlaceID = result.ID
		event.PlaceName = result.Name
		p.events.Dispatch(*event)
	}
	logging.With(ctx, p.log).Info().
		Str("place_id", placeID).
		Bool("enabled", enabled).
		Bool("is_premium", result.IsPremium).
		Msg("premium toggled")
	return result, nil
}

// ownerLanguage reads the owner's notification language from the account row,
// locking it inside tx. A missing account leaves the language empty.
func (p *premiumUC) ownerLanguage(ctx context.Context, tx repository.Tx, userID string) (string, error) {
	acc, err := p.ledger.GetAccount(ctx, tx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return acc.Language, nil
}
