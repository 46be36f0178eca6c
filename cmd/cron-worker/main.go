package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chemtrack/labstock-backend/internal/cron"
	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/config"
	"github.com/chemtrack/labstock-backend/pkg/db"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/metrics"
	"github.com/chemtrack/labstock-backend/pkg/migrate"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/redis"
)

const (
	workerName    = "cron-worker"
	lockKeyFormat = "labstock:cron-worker:lock:%s"
)

func main() {
	boot := context.Background()
	logg := logger.New(logger.Options{ServiceName: workerName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "failed to load config", err)
	}
	cfg.Service.Kind = workerName

	logg = logger.New(logger.Options{
		ServiceName: workerName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(boot, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(boot, "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		fatal(logg, "failed to create cron lock", err)
	}

	engine := metrics.NewEngineMetrics(nil)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledgerRepo, dbClient, outboxService, engine)
	if err != nil {
		fatal(logg, "failed to create ledger service", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		fatal(logg, "failed to create outbox retention job", err)
	}

	lowStockJob, err := cron.NewLowStockScanJob(cron.LowStockScanJobParams{
		Logger:  logg,
		DB:      dbClient,
		Repo:    ledgerRepo,
		Emitter: outboxService,
	})
	if err != nil {
		fatal(logg, "failed to create low stock scan job", err)
	}

	auditJob, err := cron.NewStockAuditJob(cron.StockAuditJobParams{
		Logger:     logg,
		Repo:       ledgerRepo,
		Reconciler: ledgerService,
	})
	if err != nil {
		fatal(logg, "failed to create stock audit job", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retentionJob, lowStockJob, auditJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		fatal(logg, "failed to create cron service", err)
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
