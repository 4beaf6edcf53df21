package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	"github.com/hostelhub/hostelhub-backend/internal/users"
	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
	"github.com/hostelhub/hostelhub-backend/pkg/metrics"
	"github.com/hostelhub/hostelhub-backend/pkg/outbox"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
)

const paymentCurrency = "PHP"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TransitionApplier moves a booking between statuses and applies the matching
// inventory effect on the same transaction.
type TransitionApplier interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, booking *models.Booking, target enums.BookingStatus) (bool, error)
}

// PaymentIntentCreator opens a payment intent at the gateway.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, description string, metadata map[string]string) (*paymongo.PaymentIntent, error)
}

// Service is the booking ledger plus the booking API operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*View, error)
	GetByID(ctx context.Context, bookingID uuid.UUID, actor Actor) (*View, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]View, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, target enums.BookingStatus, actor Actor) (*View, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor) (*View, error)
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo       Repository
	usersRepo  users.Repository
	roomsRepo  rooms.Repository
	tx         txRunner
	reconciler TransitionApplier
	outbox     outboxPublisher
	intents    PaymentIntentCreator
	metrics    *metrics.BookingMetrics
	logg       *logger.Logger
}

// NewService builds the bookings service. The payment intent creator is
// optional; without it every booking is treated as pay-at-property capable
// but pending bookings never receive a client key.
func NewService(
	repo Repository,
	usersRepo users.Repository,
	roomsRepo rooms.Repository,
	tx txRunner,
	reconciler TransitionApplier,
	outboxSvc outboxPublisher,
	intents PaymentIntentCreator,
	bookingMetrics *metrics.BookingMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if roomsRepo == nil {
		return nil, fmt.Errorf("rooms repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("inventory reconciler required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       repo,
		usersRepo:  usersRepo,
		roomsRepo:  roomsRepo,
		tx:         tx,
		reconciler: reconciler,
		outbox:     outboxSvc,
		intents:    intents,
		metrics:    bookingMetrics,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*View, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.RoomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	if !input.CheckOut.After(input.CheckIn) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "check-out must be after check-in")
	}
	nights := nightsBetween(input.CheckIn, input.CheckOut)
	if nights <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stay must cover at least one night")
	}

	booking := &models.Booking{
		ID:              uuid.New(),
		UserID:          input.UserID,
		RoomID:          input.RoomID,
		CheckIn:         input.CheckIn,
		CheckOut:        input.CheckOut,
		GuestCount:      input.GuestCount,
		SpecialRequests: input.SpecialRequests,
		Status:          enums.BookingStatusPendingPayment,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.usersRepo.WithTx(tx).FindActiveByID(ctx, input.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
		}

		room, err := s.roomsRepo.WithTx(tx).FindActiveByID(ctx, input.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading room")
		}
		if input.GuestCount < 1 || input.GuestCount > room.MaxOccupancy {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("guest count must be between 1 and %d", room.MaxOccupancy))
		}

		booking.TotalAmount = room.NightlyPrice.Mul(decimal.NewFromInt(int64(nights)))
		if !booking.TotalAmount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "booking amount must be positive")
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating booking")
		}

		if err := s.outbox.Emit(ctx, tx, s.event(enums.EventBookingCreated, booking, nil)); err != nil {
			return err
		}

		if input.PayAtProperty {
			applied, err := s.reconciler.ApplyTransition(ctx, tx, booking, enums.BookingStatusConfirmed)
			if err != nil {
				return err
			}
			if applied {
				s.metrics.IncTransition(enums.BookingStatusConfirmed.String())
				return s.outbox.EmitIfNotExists(ctx, tx, s.event(enums.EventBookingConfirmed, booking, nil))
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInventoryExhausted {
			s.metrics.IncInventoryExhausted()
		}
		return nil, err
	}

	view := toView(booking)
	if booking.Status == enums.BookingStatusPendingPayment && s.intents != nil {
		if err := s.openPaymentIntent(ctx, booking, view); err != nil {
			return nil, err
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Info(logCtx, "booking created")
	}
	return view, nil
}

// openPaymentIntent runs after the booking committed. A gateway failure leaves
// the pending booking in place for the TTL job to expire.
func (s *service) openPaymentIntent(ctx context.Context, booking *models.Booking, view *View) error {
	intent, err := s.intents.CreatePaymentIntent(
		ctx,
		booking.TotalAmount,
		paymentCurrency,
		fmt.Sprintf("HostelHub booking %s", booking.ID),
		map[string]string{"bookingId": booking.ID.String()},
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening payment intent")
	}
	if err := s.repo.SetPaymentIntentID(ctx, booking.ID, intent.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment intent")
	}
	view.PaymentIntentID = &intent.ID
	view.PaymentClientKey = intent.ClientKey
	return nil
}

func (s *service) GetByID(ctx context.Context, bookingID uuid.UUID, actor Actor) (*View, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(booking, actor); err != nil {
		return nil, err
	}
	return toView(booking), nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing bookings")
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *toView(&rows[i]))
	}
	return views, nil
}

func (s *service) UpdateStatus(ctx context.Context, bookingID uuid.UUID, target enums.BookingStatus, actor Actor) (*View, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid booking status %q", target))
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(booking, actor); err != nil {
		return nil, err
	}
	if !actor.System && target != enums.BookingStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only cancellation can be requested directly")
	}

	var applied bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		applied, terr = s.reconciler.ApplyTransition(ctx, tx, booking, target)
		if terr != nil {
			return terr
		}
		if !applied {
			return nil
		}
		if eventType, ok := eventForStatus(target); ok {
			return s.outbox.EmitIfNotExists(ctx, tx, s.event(eventType, booking, actorRef(actor)))
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInventoryExhausted {
			s.metrics.IncInventoryExhausted()
		}
		return nil, err
	}
	if applied {
		s.metrics.IncTransition(target.String())
		if s.logg != nil {
			logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
			s.logg.Info(logCtx, fmt.Sprintf("booking moved to %s", target))
		}
	}
	return toView(booking), nil
}

func (s *service) Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor) (*View, error) {
	return s.UpdateStatus(ctx, bookingID, enums.BookingStatusCancelled, actor)
}

// ExpirePendingBefore fails pending bookings created before the cutoff. The
// pending state never held inventory, so no counts move here.
func (s *service) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stale bookings")
	}

	var expired int
	var combined error
	for i := range stale {
		booking := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			applied, terr := s.reconciler.ApplyTransition(ctx, tx, &booking, enums.BookingStatusPaymentFailed)
			if terr != nil {
				return terr
			}
			if !applied {
				return nil
			}
			expired++
			return s.outbox.EmitIfNotExists(ctx, tx, s.event(enums.EventBookingExpired, &booking, nil))
		})
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("booking %s: %w", booking.ID, err))
		}
	}
	if expired > 0 {
		s.metrics.IncTransition(enums.BookingStatusPaymentFailed.String())
	}
	return expired, combined
}

func (s *service) load(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading booking")
	}
	return booking, nil
}

func (s *service) event(eventType enums.OutboxEventType, booking *models.Booking, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   booking.ID,
		Actor:         actor,
		Version:       1,
		Data: BookingEvent{
			BookingID: booking.ID,
			RoomID:    booking.RoomID,
			UserID:    booking.UserID,
			Status:    booking.Status,
		},
	}
}

func checkOwner(booking *models.Booking, actor Actor) error {
	if actor.System {
		return nil
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if booking.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another user")
	}
	return nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.System {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID}
}

func eventForStatus(status enums.BookingStatus) (enums.OutboxEventType, bool) {
	switch status {
	case enums.BookingStatusConfirmed:
		return enums.EventBookingConfirmed, true
	case enums.BookingStatusCancelled:
		return enums.EventBookingCancelled, true
	case enums.BookingStatusRefunded:
		return enums.EventBookingRefunded, true
	default:
		return "", false
	}
}

func nightsBetween(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}
