// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cityguide-billing/internal/config"
	"cityguide-billing/internal/domain/ports/adapter"
	"cityguide-billing/internal/domain/ports/repository"
	"cityguide-billing/internal/infra/adapters/notify"
	pg "cityguide-billing/internal/infra/db/postgres"
	"cityguide-billing/internal/infra/i18n"
	"cityguide-billing/internal/infra/logging"
	"cityguide-billing/internal/infra/metrics"
	red "cityguide-billing/internal/infra/redis"
	"cityguide-billing/internal/infra/sched"
	"cityguide-billing/internal/infra/scheduler"
	"cityguide-billing/internal/infra/web"
	"cityguide-billing/internal/infra/worker"
	"cityguide-billing/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fatalLog := zerolog.New(os.Stderr)
		fatalLog.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("billing service stopped with error")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ---- Redis (optional: run lock, plan cache, rate limits) ----
	var rc *red.Client
	if cfg.Redis.URL != "" {
		rc, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
	} else {
		logger.Warn().Msg("redis.url not set; running without run lock, plan cache and rate limits")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	ledgerRepo := pg.NewPostgresLedgerRepo(pool)
	listingRepo := pg.NewPostgresListingRepo(pool)
	subRepo := pg.NewPostgresSubscriptionRepo(pool)
	var planRepo repository.BillingPlanRepository = pg.NewPostgresPlanRepo(pool)
	if rc != nil {
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, rc, cfg.Redis.TTL, logger)
	}

	// ---- Notifications ----
	var publisher adapter.NotificationPublisher
	if cfg.AMQP.URL != "" {
		publisher, err = notify.NewAMQPPublisher(cfg.AMQP, logger)
		if err != nil {
			return err
		}
	} else {
		publisher = notify.NewLogPublisher(logger)
	}
	catalog, err := i18n.NewCatalog(i18n.LocalesFS, cfg.Notifications.Language)
	if err != nil {
		return err
	}
	notifier := sched.NewNotificationWorker(
		worker.NewPool(cfg.Notifications.Workers, cfg.Notifications.Queue, logger),
		catalog, publisher, logger,
	)

	// ---- Use cases ----
	billingUC := usecase.NewBillingUseCase(subRepo, ledgerRepo, listingRepo, tm, notifier, usecase.BillingOptions{
		PremiumFee:  cfg.Billing.PremiumFee,
		Concurrency: cfg.Billing.Concurrency,
		SweepBatch:  cfg.Billing.SweepBatch,
	}, logging.Component(logger, "BillingUC"))
	premiumUC := usecase.NewPremiumUseCase(listingRepo, subRepo, ledgerRepo, tm, notifier, cfg.Billing.PremiumFee, logging.Component(logger, "PremiumUC"))
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, tm, logging.Component(logger, "LedgerUC"))
	planUC := usecase.NewPlanUseCase(planRepo, logging.Component(logger, "PlanUC"))

	// ---- Workers ----
	var locker adapter.RunLocker
	if rc != nil {
		locker = red.NewLocker(rc)
	}
	billingWorker := sched.NewBillingWorker(billingUC, locker, cfg.Billing.LockTTL, cfg.Billing.RunTimeout, logger)
	expiryWorker := sched.NewExpiryWorker(billingUC, logger)

	if cfg.Runtime.Once {
		return runOnce(ctx, notifier, billingWorker, expiryWorker, logger)
	}

	s := scheduler.NewScheduler(logger)
	if err := billingWorker.Schedule(s, cfg.Billing.Cron); err != nil {
		return err
	}
	if err := expiryWorker.Schedule(s, cfg.Billing.SweepCron); err != nil {
		return err
	}

	// ---- HTTP ----
	if cfg.Security.JWTSecret == "" {
		logger.Warn().Msg("security.jwt_secret not set; owner endpoints will reject every request")
	}
	deps := web.Deps{
		Premium: premiumUC,
		Ledger:  ledgerUC,
		Plans:   planUC,
		Cycle:   billingWorker,
		Sweeper: expiryWorker,
		Auth:    web.NewAuthManager(cfg.Security.JWTSecret, time.Hour),
		Health: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			if rc != nil {
				return rc.Ping(ctx)
			}
			return nil
		},
	}
	if rc != nil {
		deps.Limiter = red.NewRateLimiter(rc)
	}
	server := web.NewServer(cfg.HTTP, cfg.Security.AdminAPIKey, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(notifier.Run(gctx)) })
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error {
		sched.NewStatsReporter(subRepo, time.Minute, logger).Start(gctx)
		return nil
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second, logger)
		return nil
	})
	s.Start(gctx)
	logger.Info().Str("cron", cfg.Billing.Cron).Str("sweep_cron", cfg.Billing.SweepCron).Msg("billing service started")

	err = g.Wait()
	s.Stop()
	logger.Info().Msg("shutdown complete")
	return err
}

// runOnce executes one cycle and one sweep for use under an external scheduler.
func runOnce(ctx context.Context, notifier *sched.NotificationWorker, bw *sched.BillingWorker, ew *sched.ExpiryWorker, logger *zerolog.Logger) error {
	nctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan error, 1)
	go func() { done <- notifier.Run(nctx) }()
	defer func() {
		cancel()
		<-done
	}()

	report, err := bw.RunOnce(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Str("run_id", report.RunID).
		Int("selected", report.Selected).
		Int("renewed", report.Renewed).
		Int("hidden", report.Hidden).
		Int("errors", len(report.Errors)).
		Msg("billing cycle complete")
	if _, err := ew.Sweep(ctx); err != nil {
		return err
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
