package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	rooms := `
CREATE TABLE IF NOT EXISTS rooms (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT,
  nightly_price NUMERIC NOT NULL DEFAULT 0,
  max_occupancy INTEGER NOT NULL DEFAULT 1,
  available_count INTEGER NOT NULL DEFAULT 0,
  total_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	bookings := `
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  room_id TEXT NOT NULL,
  check_in DATETIME NOT NULL,
  check_out DATETIME NOT NULL,
  guest_count INTEGER NOT NULL DEFAULT 1,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  special_requests TEXT,
  status TEXT NOT NULL,
  payment_intent_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(rooms).Error)
	require.NoError(t, db.Exec(bookings).Error)
	return db
}

func seedRoom(t *testing.T, db *gorm.DB, available, total int) *models.Room {
	t.Helper()
	room := &models.Room{
		ID:             uuid.New(),
		Name:           "Dorm 4-Bed",
		Slug:           "dorm-4-bed-" + uuid.NewString()[:8],
		AvailableCount: available,
		TotalCount:     total,
		IsActive:       true,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedBooking(t *testing.T, db *gorm.DB, roomID uuid.UUID, status enums.BookingStatus) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:     uuid.New(),
		UserID: uuid.New(),
		RoomID: roomID,
		Status: status,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func roomCount(t *testing.T, db *gorm.DB, roomID uuid.UUID) int {
	t.Helper()
	var room models.Room
	require.NoError(t, db.First(&room, "id = ?", roomID).Error)
	return room.AvailableCount
}

func bookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID) enums.BookingStatus {
	t.Helper()
	var booking models.Booking
	require.NoError(t, db.First(&booking, "id = ?", bookingID).Error)
	return booking.Status
}

func TestApplyTransitionConfirmDecrements(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 1, 2)
	booking := seedBooking(t, db, room.ID, enums.BookingStatusPendingPayment)
	rec := NewReconciler(nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		applied, terr := rec.ApplyTransition(ctx, tx, booking, enums.BookingStatusConfirmed)
		require.NoError(t, terr)
		require.True(t, applied)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 0, roomCount(t, db, room.ID))
	require.Equal(t, enums.BookingStatusConfirmed, bookingStatus(t, db, booking.ID))
}

func TestApplyTransitionNeverOversells(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 1, 5)
	first := seedBooking(t, db, room.ID, enums.BookingStatusPendingPayment)
	second := seedBooking(t, db, room.ID, enums.BookingStatusPendingPayment)
	rec := NewReconciler(nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := rec.ApplyTransition(ctx, tx, first, enums.BookingStatusConfirmed)
		return terr
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, terr := rec.ApplyTransition(ctx, tx, second, enums.BookingStatusConfirmed)
		return terr
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInventoryExhausted, typed.Code())

	// rollback must undo the status flip for the losing booking
	require.Equal(t, enums.BookingStatusPendingPayment, bookingStatus(t, db, second.ID))
	require.Equal(t, 0, roomCount(t, db, room.ID))
}

func TestApplyTransitionConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 3, 4)
	booking := seedBooking(t, db, room.ID, enums.BookingStatusConfirmed)
	rec := NewReconciler(nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		applied, terr := rec.ApplyTransition(ctx, tx, booking, enums.BookingStatusConfirmed)
		require.NoError(t, terr)
		require.False(t, applied)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 3, roomCount(t, db, room.ID))
}

func TestApplyTransitionLostRaceToSameTarget(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 3, 4)
	booking := seedBooking(t, db, room.ID, enums.BookingStatusConfirmed)
	rec := NewReconciler(nil)

	// caller holds a stale copy that thinks the booking is still pending
	stale := *booking
	stale.Status = enums.BookingStatusPendingPayment

	err := db.Transaction(func(tx *gorm.DB) error {
		applied, terr := rec.ApplyTransition(ctx, tx, &stale, enums.BookingStatusConfirmed)
		require.NoError(t, terr)
		require.False(t, applied)
		return nil
	})
	require.NoError(t, err)

	// no second decrement
	require.Equal(t, 3, roomCount(t, db, room.ID))
}

func TestApplyTransitionRejectsCancelBeforeConfirmation(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 2, 2)
	rec := NewReconciler(nil)

	// only confirmed bookings can be cancelled; a pending or failed booking
	// holds no inventory and has nothing to release
	for _, from := range []enums.BookingStatus{
		enums.BookingStatusPendingPayment,
		enums.BookingStatusPaymentFailed,
	} {
		booking := seedBooking(t, db, room.ID, from)
		err := db.Transaction(func(tx *gorm.DB) error {
			_, terr := rec.ApplyTransition(ctx, tx, booking, enums.BookingStatusCancelled)
			return terr
		})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "cancel from %s", from)
		require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
		require.Equal(t, from, bookingStatus(t, db, booking.ID))
	}
	require.Equal(t, 2, roomCount(t, db, room.ID))
}

func TestApplyTransitionRefundReturnsUnit(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 0, 1)
	booking := seedBooking(t, db, room.ID, enums.BookingStatusConfirmed)
	rec := NewReconciler(nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		applied, terr := rec.ApplyTransition(ctx, tx, booking, enums.BookingStatusRefunded)
		require.NoError(t, terr)
		require.True(t, applied)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 1, roomCount(t, db, room.ID))
}

func TestApplyTransitionRefusesOverRelease(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 1, 1)
	booking := seedBooking(t, db, room.ID, enums.BookingStatusConfirmed)
	rec := NewReconciler(nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := rec.ApplyTransition(ctx, tx, booking, enums.BookingStatusCancelled)
		return terr
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	require.Equal(t, 1, roomCount(t, db, room.ID))
}

func TestApplyTransitionRejectsDisallowedEdges(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, 1, 1)
	rec := NewReconciler(nil)

	cases := []struct {
		from enums.BookingStatus
		to   enums.BookingStatus
	}{
		{enums.BookingStatusCancelled, enums.BookingStatusConfirmed},
		{enums.BookingStatusRefunded, enums.BookingStatusConfirmed},
		{enums.BookingStatusConfirmed, enums.BookingStatusPendingPayment},
		{enums.BookingStatusCancelled, enums.BookingStatusRefunded},
	}
	for _, tc := range cases {
		booking := seedBooking(t, db, room.ID, tc.from)
		err := db.Transaction(func(tx *gorm.DB) error {
			_, terr := rec.ApplyTransition(ctx, tx, booking, tc.to)
			return terr
		})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "edge %s to %s", tc.from, tc.to)
		require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	}
}

func TestTransitionEffectTable(t *testing.T) {
	t.Parallel()

	effect, ok := TransitionEffect(enums.BookingStatusPendingPayment, enums.BookingStatusConfirmed)
	require.True(t, ok)
	require.Equal(t, EffectDecrement, effect)

	effect, ok = TransitionEffect(enums.BookingStatusPaymentFailed, enums.BookingStatusConfirmed)
	require.True(t, ok)
	require.Equal(t, EffectDecrement, effect)

	effect, ok = TransitionEffect(enums.BookingStatusConfirmed, enums.BookingStatusRefunded)
	require.True(t, ok)
	require.Equal(t, EffectIncrement, effect)

	_, ok = TransitionEffect(enums.BookingStatusRefunded, enums.BookingStatusCancelled)
	require.False(t, ok)

	// the table is closed: cancellation is only reachable from confirmed
	_, ok = TransitionEffect(enums.BookingStatusPendingPayment, enums.BookingStatusCancelled)
	require.False(t, ok)
	_, ok = TransitionEffect(enums.BookingStatusPaymentFailed, enums.BookingStatusCancelled)
	require.False(t, ok)
}
