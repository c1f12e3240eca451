package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/metrics"
	"cityguide-billing/internal/infra/scheduler"
)

// ExpiryWorker retires premium on listings whose paid period has elapsed.
type ExpiryWorker struct {
	runner port.BillingRunner
	now    func() time.Time
	log    *zerolog.Logger
}

func NewExpiryWorker(runner port.BillingRunner, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		runner: runner,
		now:    time.Now,
		log:    &exprLog,
	}
}

func (w *ExpiryWorker) Schedule(s *scheduler.Scheduler, spec string) error {
	return s.Add("premium_sweep", spec, func(ctx context.Context) {
		_, _ = w.Sweep(ctx)
	})
}

func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	n, err := w.runner.SweepExpiredPremium(ctx, w.now())
	if n > 0 {
		metrics.AddPremiumSwept(n)
		w.log.Info().Int("count", n).Msg("expired premium retired")
	}
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
	}
	return n, err
}
