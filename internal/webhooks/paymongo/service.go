package paymongowebhook

import (
	"context"

	"github.com/google/uuid"

	"github.com/hostelhub/hostelhub-backend/internal/bookings"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
)

const (
	resultProcessed = "processed"
	resultIgnored   = "ignored"
	resultFailed    = "failed"
)

// bookingService is the slice of the booking ledger the handler needs.
type bookingService interface {
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, target enums.BookingStatus, actor bookings.Actor) (*bookings.View, error)
}

// Service turns verified payment gateway events into booking transitions.
type Service struct {
	bookings bookingService
	metrics  *metrics.BookingMetrics
	logg     *logger.Logger
}

func NewService(bookingSvc bookingService, bookingMetrics *metrics.BookingMetrics, logg *logger.Logger) (*Service, error) {
	if bookingSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking service required")
	}
	return &Service{
		bookings: bookingSvc,
		metrics:  bookingMetrics,
		logg:     logg,
	}, nil
}

// HandleEvent applies the event to the booking it references.
//
// Returned errors mean the delivery should NOT be acknowledged; anything the
// gateway cannot fix by retrying (malformed metadata, missing booking, late
// failure on a confirmed booking) is logged and swallowed so the gateway
// stops retrying.
func (s *Service) HandleEvent(ctx context.Context, event paymongo.Event) error {
	switch event.Type {
	case paymongo.EventPaymentSucceeded:
		return s.applyTransition(ctx, event, enums.BookingStatusConfirmed)
	case paymongo.EventPaymentFailed:
		return s.applyTransition(ctx, event, enums.BookingStatusPaymentFailed)
	default:
		s.metrics.IncWebhookEvent(event.Type, resultIgnored)
		return nil
	}
}

func (s *Service) applyTransition(ctx context.Context, event paymongo.Event, target enums.BookingStatus) error {
	bookingID, err := s.bookingRef(ctx, event)
	if err != nil {
		s.metrics.IncWebhookEvent(event.Type, resultIgnored)
		return nil
	}

	_, err = s.bookings.UpdateStatus(ctx, bookingID, target, bookings.SystemActor())
	if err == nil {
		s.metrics.IncWebhookEvent(event.Type, resultProcessed)
		return nil
	}

	typed := pkgerrors.As(err)
	if typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeNotFound:
			// payment for a booking we never created; ack and move on
			s.warn(ctx, event, "event references unknown booking", err)
			s.metrics.IncWebhookEvent(event.Type, resultIgnored)
			return nil
		case pkgerrors.CodeStateConflict:
			// late failure after confirmation, or an already-terminal
			// booking; retrying would never change the outcome
			s.warn(ctx, event, "event arrived after a terminal transition", err)
			s.metrics.IncWebhookEvent(event.Type, resultIgnored)
			return nil
		}
	}

	s.metrics.IncWebhookEvent(event.Type, resultFailed)
	return err
}

func (s *Service) bookingRef(ctx context.Context, event paymongo.Event) (uuid.UUID, error) {
	raw := event.BookingID()
	if raw == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "event metadata missing booking reference")
		s.warn(ctx, event, "discarding event without booking metadata", err)
		return uuid.Nil, err
	}
	bookingID, err := uuid.Parse(raw)
	if err != nil {
		typed := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event metadata booking reference malformed")
		s.warn(ctx, event, "discarding event with malformed booking reference", typed)
		return uuid.Nil, typed
	}
	return bookingID, nil
}

func (s *Service) warn(ctx context.Context, event paymongo.Event, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	s.logg.Error(logCtx, msg, err)
}
