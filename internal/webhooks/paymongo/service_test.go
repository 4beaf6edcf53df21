package paymongowebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostelhub-backend/internal/bookings"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
)

type statusCall struct {
	bookingID uuid.UUID
	target    enums.BookingStatus
	actor     bookings.Actor
}

type stubBookingService struct {
	calls []statusCall
	err   error
}

func (s *stubBookingService) UpdateStatus(_ context.Context, bookingID uuid.UUID, target enums.BookingStatus, actor bookings.Actor) (*bookings.View, error) {
	s.calls = append(s.calls, statusCall{bookingID: bookingID, target: target, actor: actor})
	if s.err != nil {
		return nil, s.err
	}
	return &bookings.View{ID: bookingID, Status: target}, nil
}

type stubIdempotencyStore struct {
	seen   map[string]string
	setErr error
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{seen: map[string]string{}}
}

func (s *stubIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return s.seen[key], nil
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = "1"
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "hh:idempotency:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

func paidEvent(t *testing.T, eventType string, bookingID string) paymongo.Event {
	t.Helper()
	event := paymongo.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
	}
	event.Resource.ID = "pi_" + uuid.NewString()
	if bookingID != "" {
		event.Resource.Metadata = map[string]string{"bookingId": bookingID}
	}
	return event
}

func TestHandleEventConfirmsBookingOnSuccess(t *testing.T) {
	stub := &stubBookingService{}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	bookingID := uuid.New()
	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentSucceeded, bookingID.String()))
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	require.Equal(t, bookingID, stub.calls[0].bookingID)
	require.Equal(t, enums.BookingStatusConfirmed, stub.calls[0].target)
	require.True(t, stub.calls[0].actor.System)
}

func TestHandleEventMarksBookingFailedOnPaymentFailure(t *testing.T) {
	stub := &stubBookingService{}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	bookingID := uuid.New()
	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentFailed, bookingID.String()))
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	require.Equal(t, enums.BookingStatusPaymentFailed, stub.calls[0].target)
}

func TestHandleEventAcksEventWithoutBookingMetadata(t *testing.T) {
	stub := &stubBookingService{}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentSucceeded, ""))
	require.NoError(t, err)
	require.Empty(t, stub.calls)
}

func TestHandleEventAcksMalformedBookingReference(t *testing.T) {
	stub := &stubBookingService{}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentSucceeded, "not-a-uuid"))
	require.NoError(t, err)
	require.Empty(t, stub.calls)
}

func TestHandleEventAcksUnknownBooking(t *testing.T) {
	stub := &stubBookingService{err: pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentSucceeded, uuid.NewString()))
	require.NoError(t, err)
	require.Len(t, stub.calls, 1)
}

func TestHandleEventAcksLateFailureAfterConfirmation(t *testing.T) {
	stub := &stubBookingService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "transition disallowed")}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentFailed, uuid.NewString()))
	require.NoError(t, err)
}

func TestHandleEventReturnsRetryableErrors(t *testing.T) {
	stub := &stubBookingService{err: errors.New("database unavailable")}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, paymongo.EventPaymentSucceeded, uuid.NewString()))
	require.Error(t, err)
}

func TestHandleEventIgnoresUnknownEventTypes(t *testing.T) {
	stub := &stubBookingService{}
	svc, err := NewService(stub, nil, nil)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), paidEvent(t, "source.chargeable", uuid.NewString()))
	require.NoError(t, err)
	require.Empty(t, stub.calls)
}

func TestIdempotencyGuardMarksFirstDeliveryOnly(t *testing.T) {
	store := newStubIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "paymongo")
	require.NoError(t, err)

	duplicate, err := guard.CheckAndMark(context.Background(), "evt_123")
	require.NoError(t, err)
	require.False(t, duplicate)

	duplicate, err = guard.CheckAndMark(context.Background(), "evt_123")
	require.NoError(t, err)
	require.True(t, duplicate)
}

func TestIdempotencyGuardDeleteAllowsRetry(t *testing.T) {
	store := newStubIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "paymongo")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt_123")
	require.NoError(t, err)

	require.NoError(t, guard.Delete(context.Background(), "evt_123"))

	duplicate, err := guard.CheckAndMark(context.Background(), "evt_123")
	require.NoError(t, err)
	require.False(t, duplicate)
}

func TestIdempotencyGuardPropagatesStoreErrors(t *testing.T) {
	store := newStubIdempotencyStore()
	store.setErr = errors.New("redis unavailable")
	guard, err := NewIdempotencyGuard(store, time.Hour, "paymongo")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt_123")
	require.Error(t, err)
}
