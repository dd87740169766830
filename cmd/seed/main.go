package main

import (
	"context"
	"fmt"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/httpserver"
	conversionrepo "commerce-backoffice/internal/repository/conversion"
	customerrepo "commerce-backoffice/internal/repository/customer"
	pricerepo "commerce-backoffice/internal/repository/price"
	productrepo "commerce-backoffice/internal/repository/product"
	conversionsvc "commerce-backoffice/internal/service/conversion"
	"commerce-backoffice/internal/service/pricing"
	"commerce-backoffice/internal/seed"
	"commerce-backoffice/internal/storeconfig"
	"commerce-backoffice/internal/telemetry"
)

func main() {
	cfg := config.FromEnv()
	logger := telemetry.NewLogger("seed", cfg.LogLevel)

	stores, err := config.LoadStores(cfg.StoresFile, cfg.BaseCurrency)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed: load stores")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed: connect db")
	}
	defer pool.Close()

	rates := conversionsvc.New(conversionrepo.NewPostgres(pool, logger), nil, nil, conversionsvc.Options{Base: cfg.BaseCurrency}, logger, nil)
	prices := pricing.New(pricerepo.NewPostgres(pool, logger), storeconfig.New(stores), rates, logger)

	res, err := seed.Apply(ctx, seed.Deps{
		Products:  productrepo.NewPostgres(pool, logger),
		Prices:    prices,
		Customers: customerrepo.NewPostgres(pool, logger),
	}, stores)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed: apply")
	}
	logger.Info().Int("products", res.Products).Int64("customer_id", res.CustomerID).Msg("seed: applied")

	if cfg.JWTSecret == "" {
		return
	}
	buyer, err := httpserver.IssueToken(cfg.JWTSecret, res.CustomerID, "", 24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed: issue buyer token")
	}
	admin, err := httpserver.IssueToken(cfg.JWTSecret, res.CustomerID, "admin", 24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed: issue admin token")
	}
	fmt.Printf("buyer token: %s\nadmin token: %s\n", buyer, admin)
}
