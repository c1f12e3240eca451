package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/adapter"
	port "cityguide-billing/internal/domain/ports/usecase"
	"cityguide-billing/internal/infra/metrics"
	"cityguide-billing/internal/infra/scheduler"
)

const billingLockKey = "billing:cycle"

// BillingWorker runs the billing cycle under a cross-instance lock.
type BillingWorker struct {
	runner     port.BillingRunner
	locker     adapter.RunLocker
	lockTTL    time.Duration
	runTimeout time.Duration
	now        func() time.Time
	log        *zerolog.Logger
}

// NewBillingWorker builds the worker. A nil locker runs without locking.
func NewBillingWorker(runner port.BillingRunner, locker adapter.RunLocker, lockTTL, runTimeout time.Duration, logger *zerolog.Logger) *BillingWorker {
	compLog := logger.With().Str("component", "BillingWorker").Logger()
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	if runTimeout <= 0 {
		runTimeout = 20 * time.Minute
	}
	return &BillingWorker{
		runner:     runner,
		locker:     locker,
		lockTTL:    lockTTL,
		runTimeout: runTimeout,
		now:        time.Now,
		log:        &compLog,
	}
}

// Schedule registers the cycle on s under spec.
func (w *BillingWorker) Schedule(s *scheduler.Scheduler, spec string) error {
	return s.Add("billing_cycle", spec, func(ctx context.Context) {
		_, _ = w.RunOnce(ctx)
	})
}

// RunOnce executes a single cycle. A held lock returns domain.ErrLockHeld without running.
func (w *BillingWorker) RunOnce(ctx context.Context) (*model.BillingReport, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, billingLockKey, w.lockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			metrics.IncBillingRun("skipped")
			w.log.Info().Msg("billing cycle already running elsewhere, skipping")
			return nil, err
		}
		if err != nil {
			metrics.IncBillingRun("failed")
			w.log.Error().Err(err).Msg("billing lock unavailable")
			return nil, fmt.Errorf("acquire billing lock: %w", err)
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), billingLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("billing lock release failed")
			}
		}()
	}

	ctx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	report, err := w.runner.RunBillingCycle(ctx, w.now())
	if err != nil {
		metrics.IncBillingRun("failed")
		w.log.Error().Err(err).Msg("billing cycle failed")
		return nil, err
	}
	metrics.IncBillingRun("ok")
	metrics.ObserveBillingReport(report)
	if len(report.Errors) > 0 {
		w.log.Warn().Str("run_id", report.RunID).Int("errors", len(report.Errors)).Msg("billing cycle finished with errors")
	}
	return report, nil
}
