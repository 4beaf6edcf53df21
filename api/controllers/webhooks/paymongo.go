package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hostelhub/hostelhub-backend/api/responses"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
)

// signatureTolerance bounds how old a delivery's timestamp may be before it
// is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

type PayMongoWebhookService interface {
	HandleEvent(ctx context.Context, event paymongo.Event) error
}

type payMongoWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PayMongoWebhook handles payment lifecycle events from the gateway. The
// signature check runs over the raw body before anything is decoded. Once a
// delivery is authenticated, only retryable infrastructure failures return a
// non-2xx status; everything else is acknowledged so the gateway stops
// retrying.
func PayMongoWebhook(svc PayMongoWebhookService, webhookSecret string, guard payMongoWebhookGuard, bookingMetrics *metrics.BookingMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if webhookSecret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(paymongo.SignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature missing"))
			return
		}

		if err := paymongo.VerifySignature(webhookSecret, sigHeader, payload, time.Now(), signatureTolerance); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
			return
		}

		event, err := paymongo.ParseEvent(payload)
		if err != nil {
			// authenticated but undecodable; retrying cannot fix it, so ack
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "dropping malformed paymongo event")
			}
			bookingMetrics.IncWebhookEvent("unknown", "ignored")
			responses.WriteSuccess(w, nil)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			_ = guard.Delete(ctx, event.ID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("paymongo event %s processed", event.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
