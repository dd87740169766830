package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/exchange"
	conversionrepo "commerce-backoffice/internal/repository/conversion"
	conversionsvc "commerce-backoffice/internal/service/conversion"
	"commerce-backoffice/internal/telemetry"
)

// rates refreshes the exchange-rate table of every traded currency whose
// table is due. It is meant to run from cron.
func main() {
	all := flag.Bool("all", false, "refresh every configured currency, not only the base")
	flag.Parse()

	cfg := config.FromEnv()
	logger := telemetry.NewLogger("rates", cfg.LogLevel)

	fetcher, err := exchange.New(cfg.Rates, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("rates: exchange-rate api")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Rates.Timeout*time.Duration(len(cfg.Currencies)+1))
	defer cancel()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("rates: connect db")
	}
	defer pool.Close()

	svc := conversionsvc.New(conversionrepo.NewPostgres(pool, logger), fetcher, nil, conversionsvc.Options{
		Base:       cfg.BaseCurrency,
		Currencies: cfg.Currencies,
		Interval:   cfg.Rates.RefreshInterval,
	}, logger, nil)

	bases := []string{svc.Base()}
	if *all {
		bases = cfg.Currencies
	}
	failed := false
	for _, base := range bases {
		refreshed, err := svc.RefreshIfDue(ctx, strings.ToUpper(base))
		if err != nil {
			failed = true
			logger.Error().Err(err).Str("base", base).Msg("rates: refresh failed")
			continue
		}
		logger.Info().Str("base", base).Bool("refreshed", refreshed).Msg("rates: checked")
	}
	if failed {
		logger.Fatal().Msg("rates: some refreshes failed")
	}
}
