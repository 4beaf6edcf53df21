package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
)

// Actor identifies who requested a booking mutation. System actors (webhooks,
// cron) bypass the owner check.
type Actor struct {
	UserID uuid.UUID
	System bool
}

// SystemActor returns the actor used for gateway- and scheduler-driven
// transitions.
func SystemActor() Actor {
	return Actor{System: true}
}

// UserActor returns an actor bound to the authenticated user.
func UserActor(userID uuid.UUID) Actor {
	return Actor{UserID: userID}
}

// CreateInput carries the fields accepted when opening a booking.
type CreateInput struct {
	UserID          uuid.UUID
	RoomID          uuid.UUID
	CheckIn         time.Time
	CheckOut        time.Time
	GuestCount      int
	SpecialRequests *string
	PayAtProperty   bool
}

// View is the booking representation returned to clients.
type View struct {
	ID               uuid.UUID           `json:"id"`
	RoomID           uuid.UUID           `json:"room_id"`
	CheckIn          time.Time           `json:"check_in"`
	CheckOut         time.Time           `json:"check_out"`
	GuestCount       int                 `json:"guest_count"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	SpecialRequests  *string             `json:"special_requests,omitempty"`
	Status           enums.BookingStatus `json:"status"`
	PaymentIntentID  *string             `json:"payment_intent_id,omitempty"`
	PaymentClientKey string              `json:"payment_client_key,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// BookingEvent is the payload stored in the outbox for booking transitions.
type BookingEvent struct {
	BookingID uuid.UUID           `json:"booking_id"`
	RoomID    uuid.UUID           `json:"room_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Status    enums.BookingStatus `json:"status"`
}

func toView(booking *models.Booking) *View {
	return &View{
		ID:              booking.ID,
		RoomID:          booking.RoomID,
		CheckIn:         booking.CheckIn,
		CheckOut:        booking.CheckOut,
		GuestCount:      booking.GuestCount,
		TotalAmount:     booking.TotalAmount,
		SpecialRequests: booking.SpecialRequests,
		Status:          booking.Status,
		PaymentIntentID: booking.PaymentIntentID,
		CreatedAt:       booking.CreatedAt,
	}
}
