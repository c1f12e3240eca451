package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"cityguide-billing/internal/config"
	"cityguide-billing/internal/domain/model"
	pg "cityguide-billing/internal/infra/db/postgres"
	"cityguide-billing/internal/infra/logging"
	"cityguide-billing/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		fatalLog := zerolog.New(os.Stderr)
		fatalLog.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, config.DatabaseConfig{URL: cfg.Database.URL, MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), logger)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("list plans")
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (period=%s, price=%d credits)\n", p.Name, p.BillingPeriod, p.Price)
		}
		return
	}

	seed := []struct {
		Name   string
		Price  int64
		Period model.BillingPeriod
	}{
		{"Daily Spotlight", 2, model.PeriodDaily},
		{"Weekly Listing", 10, model.PeriodWeekly},
		{"Monthly Listing", 35, model.PeriodMonthly},
		{"Yearly Listing", 350, model.PeriodYearly},
	}

	for _, s := range seed {
		p, err := planUC.Create(ctx, s.Name, s.Price, s.Period)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", s.Name).Msg("create plan")
		}
		fmt.Printf("seeded: %s (id=%s, period=%s, price=%d credits)\n", p.Name, p.ID, p.BillingPeriod, p.Price)
	}

	fmt.Println("Seeding complete.")
}
