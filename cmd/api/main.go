package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariovega/vidora-backend/api/routes"
	"github.com/dariovega/vidora-backend/internal/billing"
	"github.com/dariovega/vidora-backend/internal/identity"
	"github.com/dariovega/vidora-backend/internal/ledger"
	"github.com/dariovega/vidora-backend/internal/plans"
	"github.com/dariovega/vidora-backend/internal/schema"
	"github.com/dariovega/vidora-backend/internal/users"
	creemwebhook "github.com/dariovega/vidora-backend/internal/webhooks/creem"
	"github.com/dariovega/vidora-backend/pkg/config"
	"github.com/dariovega/vidora-backend/pkg/db"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/metrics"
	"github.com/dariovega/vidora-backend/pkg/migrate"
	"github.com/dariovega/vidora-backend/pkg/redis"
)

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

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	catalog, err := plans.Load(cfg.Catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to load plan catalog", err)
		os.Exit(1)
	}

	probe, err := schema.NewSubscriptionIDProbe(dbClient.DB(), logg, cfg.Schema.SubscriptionIDColumn)
	if err != nil {
		logg.Error(context.Background(), "failed to build schema probe", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	identityRepo := identity.NewRepository(dbClient.DB())
	billingRepo, err := billing.NewRepository(dbClient.DB(), probe)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing repository", err)
		os.Exit(1)
	}

	resolver, err := identity.NewResolver(usersRepo, identityRepo, cfg.Identity.EmailRemapJSON, logg, webhookMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	webhookService, err := creemwebhook.NewService(creemwebhook.ServiceParams{
		UsersRepo:         usersRepo,
		BillingRepo:       billingRepo,
		Resolver:          resolver,
		Ledger:            ledgerService,
		Catalog:           catalog,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           webhookMetrics,
		FlexDedupWindow:   cfg.Creem.FlexDedupWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := creemwebhook.NewIdempotencyGuard(redisClient, cfg.Creem.IdempotencyTTL, "creem")
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	reconcileService, err := identity.NewReconcileService(identityRepo, usersRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			RedisPinger:      redisClient,
			WebhookService:   webhookService,
			WebhookGuard:     webhookGuard,
			ReconcileService: reconcileService,
			LedgerService:    ledgerService,
			MetricsGatherer:  registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
