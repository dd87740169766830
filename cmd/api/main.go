package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/db"
	"commerce-backoffice/internal/exchange"
	"commerce-backoffice/internal/httpserver"
	"commerce-backoffice/internal/notify"
	"commerce-backoffice/internal/processor"
	cartrepo "commerce-backoffice/internal/repository/cart"
	conversionrepo "commerce-backoffice/internal/repository/conversion"
	customerrepo "commerce-backoffice/internal/repository/customer"
	orderrepo "commerce-backoffice/internal/repository/order"
	paymentrepo "commerce-backoffice/internal/repository/payment"
	pricerepo "commerce-backoffice/internal/repository/price"
	productrepo "commerce-backoffice/internal/repository/product"
	stagingrepo "commerce-backoffice/internal/repository/staging"
	cartsvc "commerce-backoffice/internal/service/cart"
	checkoutsvc "commerce-backoffice/internal/service/checkout"
	conversionsvc "commerce-backoffice/internal/service/conversion"
	ordersvc "commerce-backoffice/internal/service/order"
	paymentsvc "commerce-backoffice/internal/service/payment"
	productsvc "commerce-backoffice/internal/service/product"
	"commerce-backoffice/internal/service/pricing"
	"commerce-backoffice/internal/storeconfig"
	"commerce-backoffice/internal/telemetry"
	"commerce-backoffice/internal/view"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.FromEnv()
	logger := telemetry.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx := context.Background()
	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: init tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("api: tracer shutdown")
		}
	}()
	metrics := telemetry.NewMetrics()

	stores, err := config.LoadStores(cfg.StoresFile, cfg.BaseCurrency)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.StoresFile).Msg("api: load stores")
	}
	storeRegistry := storeconfig.New(stores)

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: connect to db")
	}
	defer dbpool.Close()

	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	priceRepo := pricerepo.NewPostgres(dbpool, logger)
	stagingRepo := stagingrepo.NewPostgres(dbpool, logger)
	rateRepo := conversionrepo.NewPostgres(dbpool, logger)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	paymentRepo := paymentrepo.NewPostgres(dbpool, logger)

	rates := conversionsvc.New(rateRepo, rateFetcher(cfg, logger), rateCache(ctx, cfg, logger), conversionsvc.Options{
		Base:       cfg.BaseCurrency,
		Currencies: cfg.Currencies,
		Interval:   cfg.Rates.RefreshInterval,
	}, logger, metrics)
	prices := pricing.New(priceRepo, storeRegistry, rates, logger)
	carts := cartsvc.New(cartRepo, productRepo, prices, cfg.BaseCurrency, logger)

	views, err := view.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("api: parse templates")
	}
	formatters, err := notify.NewRegistry(views, cfg.Notify.Formatters)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: notification formatters")
	}
	var mailer notify.Mailer = notify.DiscardMailer{Logger: logger}
	if smtpMailer, err := notify.NewSMTPMailer(cfg.SMTP, logger); err == nil {
		mailer = smtpMailer
	} else {
		logger.Warn().Err(err).Msg("api: smtp not configured, mails are discarded")
	}
	var publisher notify.Publisher = notify.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer kp.Close()
		publisher = kp
	}
	notifier := notify.New(formatters, mailer, publisher, logger, metrics)

	checkout := checkoutsvc.New(checkoutsvc.Deps{
		Carts:     carts,
		Products:  productRepo,
		Prices:    prices,
		Rates:     rates,
		Staging:   stagingRepo,
		Orders:    orderRepo,
		Customers: customerRepo,
		Stores:    storeRegistry,
		Notifier:  notifier,
	}, logger, metrics)

	gatewayDeps := paymentsvc.GatewayDeps{
		Checkout: checkout,
		Payments: paymentRepo,
		Rates:    rates,
		Views:    views,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metrics,
	}
	gateways := paymentsvc.NewRegistry()
	var payments *paymentsvc.Service
	if proc, err := processor.New(cfg.Processor, logger); err == nil {
		gateways.Register(paymentsvc.CreditCardID, func() paymentsvc.Gateway {
			return paymentsvc.NewCreditCard(cfg.Gateways.CreditCard, proc, gatewayDeps)
		})
		payments = paymentsvc.New(paymentRepo, proc, logger)
	} else {
		logger.Warn().Err(err).Msg("api: card processor not configured, card payments disabled")
		gateways.Register(paymentsvc.CreditCardID, func() paymentsvc.Gateway {
			return paymentsvc.NewCreditCard(cfg.Gateways.CreditCard, nil, gatewayDeps)
		})
		payments = paymentsvc.New(paymentRepo, nil, logger)
	}
	gateways.Register(paymentsvc.PayLaterID, func() paymentsvc.Gateway {
		return paymentsvc.NewPayLater(cfg.Gateways.PayLater, gatewayDeps)
	})

	orders := ordersvc.New(orderRepo, customerRepo, storeRegistry, notifier, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Catalog:   productsvc.New(productRepo, prices, logger),
		Carts:     carts,
		Checkout:  checkout,
		Gateways:  gateways,
		Orders:    orders,
		Payments:  payments,
		Rates:     rates,
		Prices:    prices,
		Staging:   stagingRepo,
		Reminders: notify.NewCartReminders(notifier, customerRepo),
	}, httpserver.Options{
		JWTSecret:        cfg.JWTSecret,
		PaymentRateLimit: cfg.PaymentRateLimit,
		CORSOrigins:      cfg.CORSOrigins,
		Metrics:          metrics,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("api: shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("api: server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: graceful shutdown failed")
	} else {
		logger.Info().Msg("api: server stopped")
	}
}

// rateFetcher returns nil when the exchange-rate API is not configured;
// refreshes then fail with a configuration error while cached tables keep
// serving lookups.
func rateFetcher(cfg config.Config, logger zerolog.Logger) conversionsvc.Fetcher {
	client, err := exchange.New(cfg.Rates, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("api: exchange-rate api not configured")
		return nil
	}
	return client
}

func rateCache(ctx context.Context, cfg config.Config, logger zerolog.Logger) conversionsvc.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("api: redis unreachable, rate cache disabled")
		_ = client.Close()
		return nil
	}
	return conversionsvc.NewRedisCache(client, cfg.Rates.CacheTTL)
}
