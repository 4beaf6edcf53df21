package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostelhub/hostelhub-backend/api/routes"
	"github.com/hostelhub/hostelhub-backend/internal/auth"
	"github.com/hostelhub/hostelhub-backend/internal/bookings"
	"github.com/hostelhub/hostelhub-backend/internal/inventory"
	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	"github.com/hostelhub/hostelhub-backend/internal/users"
	paymongowebhook "github.com/hostelhub/hostelhub-backend/internal/webhooks/paymongo"
	"github.com/hostelhub/hostelhub-backend/pkg/config"
	"github.com/hostelhub/hostelhub-backend/pkg/db"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/migrate"
	"github.com/hostelhub/hostelhub-backend/pkg/outbox"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
	"github.com/hostelhub/hostelhub-backend/pkg/redis"
)

// Webhook event ids are remembered long enough to absorb PayMongo's retry
// schedule.
const webhookDedupeTTL = 48 * time.Hour

const shutdownTimeout = 15 * time.Second

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

	authService, err := auth.NewService(users.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	roomsService, err := rooms.NewService(rooms.NewRepository(dbClient.DB()), redisClient, cfg.Cache, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rooms service", err)
		os.Exit(1)
	}

	var intents bookings.PaymentIntentCreator
	if cfg.PayMongo.SecretKey != "" {
		paymongoClient, err := paymongo.NewClient(cfg.PayMongo)
		if err != nil {
			logg.Error(context.Background(), "failed to create paymongo client", err)
			os.Exit(1)
		}
		intents = paymongoClient
	} else {
		logg.Warn(context.Background(), "paymongo secret key missing, bookings will not open payment intents")
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	bookingsService, err := bookings.NewService(
		bookings.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		rooms.NewRepository(dbClient.DB()),
		dbClient,
		inventory.NewReconciler(logg),
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		intents,
		bookingMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	webhookService, err := paymongowebhook.NewService(bookingsService, bookingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paymongowebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "paymongo")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
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
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			AuthService:     authService,
			RoomsService:    roomsService,
			BookingsService: bookingsService,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
			BookingMetrics:  bookingMetrics,
			MetricsGatherer: prometheus.DefaultGatherer,
		}),
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-signalCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
