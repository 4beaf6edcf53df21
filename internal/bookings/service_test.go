package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/internal/inventory"
	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	"github.com/hostelhub/hostelhub-backend/internal/users"
	"github.com/hostelhub/hostelhub-backend/pkg/db"
	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/outbox"
	"github.com/hostelhub/hostelhub-backend/pkg/paymongo"
)

func setupBookingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range statements {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

type stubIntentCreator struct {
	calls    int
	metadata map[string]string
	err      error
}

func (s *stubIntentCreator) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, description string, metadata map[string]string) (*paymongo.PaymentIntent, error) {
	s.calls++
	s.metadata = metadata
	if s.err != nil {
		return nil, s.err
	}
	return &paymongo.PaymentIntent{ID: "pi_test", Status: "awaiting_payment_method", ClientKey: "ck_test"}, nil
}

type bookingsFixture struct {
	gdb     *gorm.DB
	svc     Service
	intents *stubIntentCreator
}

func newBookingsFixture(t *testing.T) *bookingsFixture {
	t.Helper()
	gdb := setupBookingsTestDB(t)
	client := db.NewWithConn(gdb)
	intents := &stubIntentCreator{}

	// outbox events must be written on the same transaction as the ledger rows
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), nil)

	svc, err := NewService(
		NewRepository(gdb),
		users.NewRepository(gdb),
		rooms.NewRepository(gdb),
		client,
		inventory.NewReconciler(nil),
		outboxSvc,
		intents,
		nil,
		nil,
	)
	require.NoError(t, err)
	return &bookingsFixture{gdb: gdb, svc: svc, intents: intents}
}

func (f *bookingsFixture) seedUser(t *testing.T, active bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		DisplayName:  "Guest",
		IsActive:     true,
	}
	require.NoError(t, f.gdb.Create(user).Error)
	if !active {
		// gorm skips zero-value fields carrying a column default on insert
		require.NoError(t, f.gdb.Model(user).Update("is_active", false).Error)
		user.IsActive = false
	}
	return user
}

func (f *bookingsFixture) seedRoom(t *testing.T, available, total int, price int64) *models.Room {
	t.Helper()
	room := &models.Room{
		ID:             uuid.New(),
		Name:           "Private Twin",
		Slug:           "private-twin-" + uuid.NewString()[:8],
		NightlyPrice:   decimal.NewFromInt(price),
		MaxOccupancy:   2,
		AvailableCount: available,
		TotalCount:     total,
		IsActive:       true,
	}
	require.NoError(t, f.gdb.Create(room).Error)
	return room
}

func (f *bookingsFixture) seedBooking(t *testing.T, roomID, userID uuid.UUID, status enums.BookingStatus, createdAt time.Time) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		RoomID:      roomID,
		CheckIn:     time.Now().Add(24 * time.Hour),
		CheckOut:    time.Now().Add(72 * time.Hour),
		GuestCount:  1,
		TotalAmount: decimal.NewFromInt(900),
		Status:      status,
	}
	require.NoError(t, f.gdb.Create(booking).Error)
	if !createdAt.IsZero() {
		require.NoError(t, f.gdb.Model(booking).Update("created_at", createdAt).Error)
	}
	return booking
}

func (f *bookingsFixture) availableCount(t *testing.T, roomID uuid.UUID) int {
	t.Helper()
	var room models.Room
	require.NoError(t, f.gdb.First(&room, "id = ?", roomID).Error)
	return room.AvailableCount
}

func (f *bookingsFixture) outboxEventTypes(t *testing.T, aggregateID uuid.UUID) []string {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.gdb.Where("aggregate_id = ?", aggregateID).Order("created_at ASC").Find(&rows).Error)
	types := make([]string, 0, len(rows))
	for _, row := range rows {
		types = append(types, string(row.EventType))
	}
	return types
}

func defaultCreateInput(userID, roomID uuid.UUID) CreateInput {
	checkIn := time.Now().Add(24 * time.Hour)
	return CreateInput{
		UserID:     userID,
		RoomID:     roomID,
		CheckIn:    checkIn,
		CheckOut:   checkIn.Add(48 * time.Hour),
		GuestCount: 2,
	}
}

func TestCreatePayAtPropertyConfirmsAndDecrements(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	guest := f.seedUser(t, true)

	input := defaultCreateInput(guest.ID, room.ID)
	input.PayAtProperty = true

	view, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusConfirmed, view.Status)
	require.True(t, view.TotalAmount.Equal(decimal.NewFromInt(900)), "2 nights at 450")
	require.Equal(t, 1, f.availableCount(t, room.ID))
	require.Equal(t, 0, f.intents.calls)

	types := f.outboxEventTypes(t, view.ID)
	require.Equal(t, []string{"booking.created", "booking.confirmed"}, types)
}

func TestCreatePendingOpensPaymentIntent(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	guest := f.seedUser(t, true)

	view, err := f.svc.Create(ctx, defaultCreateInput(guest.ID, room.ID))
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusPendingPayment, view.Status)
	require.Equal(t, "ck_test", view.PaymentClientKey)
	require.Equal(t, 1, f.intents.calls)
	require.Equal(t, view.ID.String(), f.intents.metadata["bookingId"])

	// pending bookings hold no inventory
	require.Equal(t, 2, f.availableCount(t, room.ID))

	var stored models.Booking
	require.NoError(t, f.gdb.First(&stored, "id = ?", view.ID).Error)
	require.NotNil(t, stored.PaymentIntentID)
	require.Equal(t, "pi_test", *stored.PaymentIntentID)
}

func TestCreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	guest := f.seedUser(t, true)

	badDates := defaultCreateInput(guest.ID, room.ID)
	badDates.CheckOut = badDates.CheckIn
	_, err := f.svc.Create(ctx, badDates)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	tooMany := defaultCreateInput(guest.ID, room.ID)
	tooMany.GuestCount = 5
	_, err = f.svc.Create(ctx, tooMany)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = f.svc.Create(ctx, defaultCreateInput(guest.ID, uuid.New()))
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreateRejectsUnknownUser(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)

	_, err := f.svc.Create(ctx, defaultCreateInput(uuid.New(), room.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	var count int64
	require.NoError(t, f.gdb.Model(&models.Booking{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	guest := f.seedUser(t, false)

	_, err := f.svc.Create(ctx, defaultCreateInput(guest.ID, room.ID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreatePayAtPropertySoldOutRollsBack(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 0, 3, 450)
	guest := f.seedUser(t, true)

	input := defaultCreateInput(guest.ID, room.ID)
	input.PayAtProperty = true

	_, err := f.svc.Create(ctx, input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInventoryExhausted, typed.Code())

	// the whole transaction rolled back: no ledger row, no events
	var count int64
	require.NoError(t, f.gdb.Model(&models.Booking{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, f.gdb.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCancelConfirmedRestoresInventory(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 1, 3, 450)
	owner := uuid.New()
	booking := f.seedBooking(t, room.ID, owner, enums.BookingStatusConfirmed, time.Time{})

	view, err := f.svc.Cancel(ctx, booking.ID, UserActor(owner))
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusCancelled, view.Status)
	require.Equal(t, 2, f.availableCount(t, room.ID))
	require.Equal(t, []string{"booking.cancelled"}, f.outboxEventTypes(t, booking.ID))
}

func TestCancelForbiddenForNonOwner(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 1, 3, 450)
	booking := f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusConfirmed, time.Time{})

	_, err := f.svc.Cancel(ctx, booking.ID, UserActor(uuid.New()))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	require.Equal(t, 1, f.availableCount(t, room.ID))
}

func TestUserCannotForceConfirm(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 1, 3, 450)
	owner := uuid.New()
	booking := f.seedBooking(t, room.ID, owner, enums.BookingStatusPendingPayment, time.Time{})

	_, err := f.svc.UpdateStatus(ctx, booking.ID, enums.BookingStatusConfirmed, UserActor(owner))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestSystemConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	booking := f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusPendingPayment, time.Time{})

	view, err := f.svc.UpdateStatus(ctx, booking.ID, enums.BookingStatusConfirmed, SystemActor())
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusConfirmed, view.Status)
	require.Equal(t, 1, f.availableCount(t, room.ID))

	// replaying the same confirmation must not decrement twice
	view, err = f.svc.UpdateStatus(ctx, booking.ID, enums.BookingStatusConfirmed, SystemActor())
	require.NoError(t, err)
	require.Equal(t, enums.BookingStatusConfirmed, view.Status)
	require.Equal(t, 1, f.availableCount(t, room.ID))
	require.Equal(t, []string{"booking.confirmed"}, f.outboxEventTypes(t, booking.ID))
}

func TestExpirePendingBefore(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	stale := time.Now().Add(-2 * time.Hour)

	first := f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusPendingPayment, stale)
	second := f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusPendingPayment, stale)
	fresh := f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusPendingPayment, time.Time{})

	expired, err := f.svc.ExpirePendingBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, expired)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		var row models.Booking
		require.NoError(t, f.gdb.First(&row, "id = ?", id).Error)
		require.Equal(t, enums.BookingStatusPaymentFailed, row.Status)
		require.Equal(t, []string{"booking.expired"}, f.outboxEventTypes(t, id))
	}
	var freshRow models.Booking
	require.NoError(t, f.gdb.First(&freshRow, "id = ?", fresh.ID).Error)
	require.Equal(t, enums.BookingStatusPendingPayment, freshRow.Status)

	// expiry never touches inventory
	require.Equal(t, 2, f.availableCount(t, room.ID))
}

func TestListByUserReturnsOwnBookings(t *testing.T) {
	t.Parallel()

	f := newBookingsFixture(t)
	ctx := context.Background()
	room := f.seedRoom(t, 2, 3, 450)
	owner := uuid.New()
	f.seedBooking(t, room.ID, owner, enums.BookingStatusConfirmed, time.Time{})
	f.seedBooking(t, room.ID, uuid.New(), enums.BookingStatusConfirmed, time.Time{})

	views, err := f.svc.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, views, 1)
}
