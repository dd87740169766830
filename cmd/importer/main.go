package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/importer"
	conversionrepo "commerce-backoffice/internal/repository/conversion"
	pricerepo "commerce-backoffice/internal/repository/price"
	productrepo "commerce-backoffice/internal/repository/product"
	conversionsvc "commerce-backoffice/internal/service/conversion"
	"commerce-backoffice/internal/service/pricing"
	"commerce-backoffice/internal/storeconfig"
	"commerce-backoffice/internal/telemetry"
)

func main() {
	var (
		filePath string
		storeID  string
	)
	flag.StringVar(&filePath, "file", "", "Path to the catalog CSV file")
	flag.StringVar(&storeID, "store", "", "Store id for rows without a store column")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := telemetry.NewLogger("importer", cfg.LogLevel)

	stores, err := config.LoadStores(cfg.StoresFile, cfg.BaseCurrency)
	if err != nil {
		logger.Fatal().Err(err).Msg("importer: load stores")
	}
	registry := storeconfig.New(stores)
	if storeID == "" && len(stores) > 0 {
		storeID = stores[0].ID
	}
	if _, ok := registry.Get(storeID); !ok {
		logger.Fatal().Str("store", storeID).Msg("importer: unknown store")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("importer: connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("importer: open file")
	}
	defer f.Close()

	rates := conversionsvc.New(conversionrepo.NewPostgres(pool, logger), nil, nil, conversionsvc.Options{Base: cfg.BaseCurrency}, logger, nil)
	prices := pricing.New(pricerepo.NewPostgres(pool, logger), registry, rates, logger)
	imp := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, logger), prices, storeID, logger)

	start := time.Now()
	stats, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("importer: import failed")
	}

	fmt.Printf("Imported %d products, %d variants, %d prices into store %s in %s\n",
		stats.Products, stats.Attributes, stats.Prices, storeID, time.Since(start).Truncate(time.Millisecond))
}
