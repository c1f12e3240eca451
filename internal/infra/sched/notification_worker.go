package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/adapter"
	"cityguide-billing/internal/infra/i18n"
	"cityguide-billing/internal/infra/metrics"
	"cityguide-billing/internal/infra/worker"
)

var _ adapter.EventDispatcher = (*NotificationWorker)(nil)

const publishTimeout = 10 * time.Second

// NotificationWorker renders billing events in the owner's language and
// publishes them on a worker pool. Dispatch never blocks the billing path.
type NotificationWorker struct {
	pool    *worker.Pool
	catalog *i18n.Catalog
	pub     adapter.NotificationPublisher
	log     *zerolog.Logger
}

func NewNotificationWorker(pool *worker.Pool, catalog *i18n.Catalog, pub adapter.NotificationPublisher, logger *zerolog.Logger) *NotificationWorker {
	compLog := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{
		pool:    pool,
		catalog: catalog,
		pub:     pub,
		log:     &compLog,
	}
}

// Run starts the pool and blocks until ctx is done, then flushes queued
// notifications and closes the publisher.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting notification worker")
	w.pool.Start(context.WithoutCancel(ctx))
	<-ctx.Done()
	w.log.Info().Msg("Stopping notification worker")
	w.pool.Stop()
	if err := w.pub.Close(); err != nil {
		w.log.Warn().Err(err).Msg("publisher close failed")
	}
	return ctx.Err()
}

func (w *NotificationWorker) Dispatch(ev model.BillingEvent) bool {
	n := w.Render(ev)
	err := w.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := w.pub.Publish(ctx, n); err != nil {
			metrics.IncNotification(string(n.Kind), "failed")
			return err
		}
		metrics.IncNotification(string(n.Kind), "published")
		return nil
	})
	if err != nil {
		metrics.IncNotification(string(n.Kind), "dropped")
		w.log.Warn().Err(err).Str("kind", string(ev.Kind)).Str("user_id", ev.UserID).Msg("notification dropped")
		return false
	}
	return true
}

// Render turns an event into the localized message for its owner.
func (w *NotificationWorker) Render(ev model.BillingEvent) adapter.Notification {
	lang := w.catalog.For(ev.Language).Lang()
	key := string(ev.Kind)
	var text string
	switch ev.Kind {
	case model.EventListingRenewed, model.EventPremiumRenewed, model.EventPremiumEnabled:
		text = w.catalog.T(lang, key, ev.PlaceName, ev.Amount, ev.Balance)
	case model.EventListingHidden:
		text = w.catalog.T(lang, key, ev.PlaceName, ev.Balance)
	default:
		text = w.catalog.T(lang, key, ev.PlaceName)
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return adapter.Notification{
		Kind:     ev.Kind,
		UserID:   ev.UserID,
		PlaceID:  ev.PlaceID,
		Language: lang,
		Text:     text,
		SentAt:   at.UTC().Format(time.RFC3339),
	}
}
