package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hostelhub/hostelhub-backend/api/controllers"
	webhookcontrollers "github.com/hostelhub/hostelhub-backend/api/controllers/webhooks"
	"github.com/hostelhub/hostelhub-backend/api/middleware"
	"github.com/hostelhub/hostelhub-backend/internal/auth"
	"github.com/hostelhub/hostelhub-backend/internal/bookings"
	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	paymongowebhook "github.com/hostelhub/hostelhub-backend/internal/webhooks/paymongo"
	"github.com/hostelhub/hostelhub-backend/pkg/config"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           *redis.Client
	AuthService     auth.Service
	RoomsService    rooms.Service
	BookingsService bookings.Service
	WebhookService  *paymongowebhook.Service
	WebhookGuard    *paymongowebhook.IdempotencyGuard
	BookingMetrics  *metrics.BookingMetrics
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    pingerOrNil(params.Redis),
		}))
	})
	r.Get("/healthz", controllers.HealthLive())

	if params.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/rooms", controllers.RoomsAvailability(params.RoomsService, logg))
		r.Get("/rooms/{roomId}", controllers.RoomDetail(params.RoomsService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paymongo", webhookcontrollers.PayMongoWebhook(params.WebhookService, cfg.PayMongo.WebhookSecret, params.WebhookGuard, params.BookingMetrics, logg))
	})

	idempotencyStore := idempotencyStoreOrNil(params.Redis)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.Idempotency(idempotencyStore, logg)).Post("/register", controllers.AuthRegister(params.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(params.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/refresh", controllers.AuthRefresh(params.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingCreate(params.BookingsService, logg))
			r.Get("/", controllers.BookingList(params.BookingsService, logg))
			r.Get("/{bookingId}", controllers.BookingDetail(params.BookingsService, logg))
			r.Post("/{bookingId}/cancel", controllers.BookingCancel(params.BookingsService, logg))
		})
	})

	return r
}

func pingerOrNil(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStoreOrNil(client *redis.Client) redis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
