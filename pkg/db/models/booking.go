package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostelhub/hostelhub-backend/pkg/enums"
)

// Booking links a user, a room and a date range. Bookings are never deleted;
// cancellation and refunds are status transitions.
type Booking struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	RoomID          uuid.UUID           `gorm:"column:room_id;type:uuid;not null;index"`
	CheckIn         time.Time           `gorm:"column:check_in;not null"`
	CheckOut        time.Time           `gorm:"column:check_out;not null"`
	GuestCount      int                 `gorm:"column:guest_count;not null;default:1"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	SpecialRequests *string             `gorm:"column:special_requests"`
	Status          enums.BookingStatus `gorm:"column:status;type:text;not null;default:'pending_payment';index"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
