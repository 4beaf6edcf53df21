package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostelhub/hostelhub-backend/internal/bookings"
	"github.com/hostelhub/hostelhub-backend/internal/cron"
	"github.com/hostelhub/hostelhub-backend/internal/inventory"
	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	"github.com/hostelhub/hostelhub-backend/internal/users"
	"github.com/hostelhub/hostelhub-backend/pkg/config"
	"github.com/hostelhub/hostelhub-backend/pkg/db"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/migrate"
	"github.com/hostelhub/hostelhub-backend/pkg/outbox"
	"github.com/hostelhub/hostelhub-backend/pkg/redis"
)

const lockKeyFormat = "hh:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	bookingsSvc, err := bookings.NewService(
		bookings.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		rooms.NewRepository(dbClient.DB()),
		dbClient,
		inventory.NewReconciler(logg),
		outboxSvc,
		nil,
		bookingMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	ttlJob, err := cron.NewBookingTTLJob(cron.BookingTTLJobParams{
		Logger:     logg,
		Bookings:   bookingsSvc,
		PendingTTL: cfg.Bookings.PendingTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking ttl job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(ttlJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: time.Duration(cfg.Bookings.CronEveryMS) * time.Millisecond,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
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
