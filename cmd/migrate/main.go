package main

import (
	"context"
	"flag"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/migrate"
	"commerce-backoffice/internal/telemetry"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying")
	flag.Parse()

	cfg := config.FromEnv()
	logger := telemetry.NewLogger("migrate", cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: connect db")
	}
	defer pool.Close()

	if *down {
		if err := migrate.Rollback(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("migrate: rollback")
		}
		logger.Info().Msg("migrate: migrations rolled back")
		return
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate: apply migrations")
	}
	logger.Info().Msg("migrate: migrations applied")
}
