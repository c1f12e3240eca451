package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/adapter"
	"cityguide-billing/internal/domain/ports/repository"
	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/logging"
)

// Compile-time check
var _ port.BillingRunner = (*billingUC)(nil)

// BillingOptions tunes the billing processor.
type BillingOptions struct {
	PremiumFee  int64
	Concurrency int // accounts settled in parallel; 1 keeps the run strictly sequential
	SweepBatch  int
}

func (o BillingOptions) withDefaults() BillingOptions {
	if o.PremiumFee <= 0 {
		o.PremiumFee = model.DefaultPremiumFee
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 500
	}
	return o
}

type billingUC struct {
	subs     repository.SubscriptionRepository
	ledger   repository.LedgerRepository
	listings repository.ListingRepository
	tm       repository.TransactionManager
	events   adapter.EventDispatcher
	opts     BillingOptions
	log      *zerolog.Logger
}

func NewBillingUseCase(
	subs repository.SubscriptionRepository,
	ledger repository.LedgerRepository,
	listings repository.ListingRepository,
	tm repository.TransactionManager,
	events adapter.EventDispatcher,
	opts BillingOptions,
	logger *zerolog.Logger,
) *billingUC {
	if events == nil {
		events = discardEvents{}
	}
	return &billingUC{
		subs:     subs,
		ledger:   ledger,
		listings: listings,
		tm:       tm,
		events:   events,
		opts:     opts.withDefaults(),
		log:      logger,
	}
}

// RunBillingCycle settles every active subscription due at now.
// Only a failed selection is returned as an error; everything else lands in the report.
func (b *billingUC) RunBillingCycle(ctx context.Context, now time.Time) (*model.BillingReport, error) {
	defer logging.TraceDuration(b.log, "BillingUC.RunBillingCycle")()

	report := &model.BillingReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logging.WithRunID(ctx, report.RunID)
	log := logging.With(ctx, b.log)

	due, err := b.subs.SelectDue(ctx, repository.NoTX, now)
	if err != nil {
		return nil, fmt.Errorf("select due subscriptions: %w", err)
	}
	report.Selected = len(due)
	log.Info().Int("selected", len(due)).Time("now", now).Msg("billing cycle started")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for _, part := range partitionByAccount(due) {
		part := part
		g.Go(func() error {
			partial := b.settleAccount(ctx, part, now)
			mu.Lock()
			report.Merge(partial)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	log.Info().
		Int("processed", report.Processed).
		Int("renewed", report.Renewed).
		Int("hidden", report.Hidden).
		Int("premium_removed", report.PremiumRemoved).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Int64("credits_debited", report.CreditsDebited).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("billing cycle finished")
	return report, nil
}

// partitionByAccount groups due rows by owning account, keeping selection order
// inside each group and ordering groups by their first row.
func partitionByAccount(due []*model.DueSubscriptionView) [][]*model.DueSubscriptionView {
	index := make(map[string]int)
	var parts [][]*model.DueSubscriptionView
	for _, v := range due {
		if v == nil {
			continue
		}
		key := v.Subscription.UserID
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], v)
	}
	return parts
}

// settleAccount processes one account's subscriptions sequentially.
func (b *billingUC) settleAccount(ctx context.Context, due []*model.DueSubscriptionView, now time.Time) *model.BillingReport {
	partial := &model.BillingReport{}
	for _, v := range due {
		id := v.Subscription.ID
		if err := ctx.Err(); err != nil {
			partial.Fail(id, err)
			continue
		}
		b.settleOne(ctx, id, now, partial)
	}
	return partial
}

func (b *billingUC) settleOne(ctx context.Context, subscriptionID string, now time.Time, partial *model.BillingReport) {
	log := logging.With(ctx, b.log).With().Str("subscription_id", subscriptionID).Logger()

	var (
		in      model.SettlementInput
		res     model.SettlementResult
		listing *model.Listing
		skipped bool
	)
	err := b.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		view, err := b.subs.LockDue(ctx, tx, subscriptionID, now)
		if errors.Is(err, domain.ErrNotFound) {
			skipped = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock subscription: %w", err)
		}
		if err := view.Validate(); err != nil {
			return err
		}
		// LockDue only locks the subscription row; the joined listing columns may predate
		// a toggle that committed while we waited, so take the listing lock and re-read.
		current, err := b.listings.GetListing(ctx, tx, view.Listing.ID)
		if err != nil {
			return fmt.Errorf("lock listing: %w", err)
		}
		view.Listing = *current

		acc, err := b.ledger.GetAccount(ctx, tx, view.Subscription.UserID)
		if err != nil {
			return fmt.Errorf("load account %s: %w", view.Subscription.UserID, err)
		}

		in = model.SettlementInput{
			Account:      *acc,
			Listing:      view.Listing,
			Subscription: view.Subscription,
			Plan:         view.Plan,
			PremiumFee:   b.opts.PremiumFee,
			Now:          now,
		}
		res = model.Settle(in)

		if len(res.Entries) > 0 {
			if err := b.ledger.CommitBalance(ctx, tx, acc.UserID, res.PreviousBalance, res.NewBalance, res.Entries); err != nil {
				return fmt.Errorf("write balance: %w", err)
			}
		}
		if _, err := b.subs.UpdateSubscription(ctx, tx, subscriptionID, res.Subscription); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
		listing, err = b.listings.UpdateListingFlags(ctx, tx, view.Listing.ID, res.Listing)
		if err != nil {
			return fmt.Errorf("update listing flags: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("subscription settlement failed")
		partial.Fail(subscriptionID, err)
		return
	}
	if skipped {
		log.Debug().Msg("subscription no longer due, skipped")
		partial.Skipped++
		return
	}

	partial.Record(res)
	for _, w := range res.Warnings {
		log.Warn().Msg(w)
	}
	log.Debug().
		Interface("outcomes", res.Outcomes).
		Int64("balance_before", res.PreviousBalance).
		Int64("balance_after", res.NewBalance).
		Msg("subscription settled")

	events := model.EventsFor(in, res)

	after := res.Listing.Apply(in.Listing)
	if listing != nil {
		after = *listing
	}
	if upd, fire := model.SweepExpiredPremium(after, now); fire {
		if _, err := b.listings.UpdateListingFlags(ctx, repository.NoTX, after.ID, upd); err != nil {
			log.Warn().Err(err).Msg("premium expiry sweep failed")
			partial.Fail(subscriptionID, fmt.Errorf("premium expiry sweep: %w", err))
		} else {
			partial.PremiumRemoved++
			events = append(events, model.BillingEvent{
				Kind:       model.EventPremiumRemoved,
				UserID:     after.OwnerID,
				PlaceID:    after.ID,
				PlaceName:  after.Name,
				Language:   in.Account.Language,
				Balance:    res.NewBalance,
				OccurredAt: now,
			})
		}
	}

	b.publish(events)
}

// SweepExpiredPremium retires premium on every listing whose paid period has elapsed,
// including listings whose subscription is not due in the current cycle.
func (b *billingUC) SweepExpiredPremium(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(b.log, "BillingUC.SweepExpiredPremium")()

	swept := 0
	for {
		batch, err := b.listings.FindExpiredPremium(ctx, repository.NoTX, now, b.opts.SweepBatch)
		if err != nil {
			return swept, fmt.Errorf("find expired premium: %w", err)
		}
		changed := 0
		for _, l := range batch {
			upd, fire := model.SweepExpiredPremium(*l, now)
			if !fire {
				continue
			}
			if _, err := b.listings.UpdateListingFlags(ctx, repository.NoTX, l.ID, upd); err != nil {
				return swept, fmt.Errorf("clear premium on %s: %w", l.ID, err)
			}
			changed++
			b.publish([]model.BillingEvent{{
				Kind:       model.EventPremiumRemoved,
				UserID:     l.OwnerID,
				PlaceID:    l.ID,
				PlaceName:  l.Name,
				Language:   b.ownerLanguage(ctx, l.OwnerID),
				OccurredAt: now,
			}})
		}
		swept += changed
		if len(batch) < b.opts.SweepBatch || changed == 0 {
			break
		}
	}
	if swept > 0 {
		b.log.Info().Int("swept", swept).Msg("expired premium retired")
	}
	return swept, nil
}

// ownerLanguage is best effort: notifications fall back to the default locale.
func (b *billingUC) ownerLanguage(ctx context.Context, userID string) string {
	acc, err := b.ledger.GetAccount(ctx, repository.NoTX, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			b.log.Debug().Err(err).Str("user_id", userID).Msg("owner language lookup failed")
		}
		return ""
	}
	return acc.Language
}

func (b *billingUC) publish(events []model.BillingEvent) {
	for _, ev := range events {
		if !b.events.Dispatch(ev) {
			b.log.Debug().Str("kind", string(ev.Kind)).Str("place_id", ev.PlaceID).Msg("notification dropped")
		}
	}
}

type discardEvents struct{}

func (discardEvents) Dispatch(model.BillingEvent) bool { return true }
