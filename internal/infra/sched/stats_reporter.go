package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
	"cityguide-billing/internal/infra/metrics"
)

// SubscriptionCounter is the read the stats reporter needs.
type SubscriptionCounter interface {
	CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error)
}

// StatsReporter periodically refreshes the subscription gauges.
type StatsReporter struct {
	counter  SubscriptionCounter
	interval time.Duration
	log      *zerolog.Logger
}

func NewStatsReporter(counter SubscriptionCounter, interval time.Duration, logger *zerolog.Logger) *StatsReporter {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "StatsReporter").Logger()
	return &StatsReporter{counter: counter, interval: interval, log: &l}
}

func (r *StatsReporter) Start(ctx context.Context) {
	r.tick(ctx)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *StatsReporter) tick(ctx context.Context) {
	counts, err := r.counter.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		r.log.Warn().Err(err).Msg("count subscriptions failed")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
