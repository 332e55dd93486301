package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/soundbay/soundbay-backend/api/routes"
	cartsvc "github.com/soundbay/soundbay-backend/internal/cart"
	"github.com/soundbay/soundbay-backend/internal/catalog"
	checkoutsvc "github.com/soundbay/soundbay-backend/internal/checkout"
	"github.com/soundbay/soundbay-backend/internal/notifications"
	"github.com/soundbay/soundbay-backend/internal/ownership"
	"github.com/soundbay/soundbay-backend/internal/sellers"
	paypalwebhook "github.com/soundbay/soundbay-backend/internal/webhooks/paypal"
	"github.com/soundbay/soundbay-backend/pkg/config"
	"github.com/soundbay/soundbay-backend/pkg/db"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/metrics"
	"github.com/soundbay/soundbay-backend/pkg/migrate"
	"github.com/soundbay/soundbay-backend/pkg/outbox"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
	"github.com/soundbay/soundbay-backend/pkg/redis"
)

const webhookDedupTTL = 48 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paypalClient, err := paypal.NewClient(context.Background(), cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap paypal client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	sellersRepo := sellers.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	ownershipRepo := ownership.NewRepository(dbClient.DB())
	ordersRepo := checkoutsvc.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	sellerService, err := sellers.NewService(dbClient, sellersRepo, paypalClient, redisClient, outboxService, logg, sellers.Options{
		ReturnURL:     cfg.PayPal.ReturnURL,
		OnboardingTTL: cfg.PayPal.OnboardingTTL,
		DefaultRate:   decimal.RequireFromString("0.15"),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, catalogRepo, ownershipRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		ordersRepo,
		cartRepo,
		ownershipRepo,
		sellerService,
		paypalClient,
		outboxService,
		checkoutMetrics,
		logg,
		checkoutsvc.Options{
			PlatformMerchantID: cfg.PayPal.PlatformMerchant,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := paypalwebhook.NewIdempotencyGuard(redisClient, webhookDedupTTL, "paypal")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	paypalWebhookService, err := paypalwebhook.NewService(paypalwebhook.ServiceParams{
		Verifier:    paypalClient,
		Merchants:   paypalClient,
		Eligibility: paypalwebhook.NewEligibilityAdapter(sellerService),
		Guard:       webhookGuard,
		Metrics:     checkoutMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			sellerService,
			cartService,
			checkoutService,
			notificationsRepo,
			paypalWebhookService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	go func() {
		stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		<-stop.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
