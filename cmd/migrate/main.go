// File: cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cityguide-billing/internal/config"
	pg "cityguide-billing/internal/infra/db/postgres"
	"cityguide-billing/internal/infra/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config yaml")
	dsn := flag.String("dsn", "", "database url; overrides the config file")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	logger := logging.New(config.LogConfig{Format: "console"}, true)
	url := *dsn
	if url == "" {
		_ = godotenv.Load()
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		cfg, err := config.Load(*configPath, false)
		if err != nil {
			fatalLog := zerolog.New(os.Stderr)
			fatalLog.Fatal().Err(err).Msg("config")
		}
		url = cfg.Database.URL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := pg.Migrate(ctx, url, command); err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	logger.Info().Str("command", command).Msg("migration done")
}
