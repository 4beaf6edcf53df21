package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Room is a bookable unit with a finite count of available instances.
// AvailableCount is mutated only by the inventory reconciler.
type Room struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;type:text;not null"`
	Slug           string          `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Description    *string         `gorm:"column:description"`
	NightlyPrice   decimal.Decimal `gorm:"column:nightly_price;type:numeric(10,2);not null"`
	MaxOccupancy   int             `gorm:"column:max_occupancy;not null;default:1"`
	AvailableCount int             `gorm:"column:available_count;not null;default:0"`
	TotalCount     int             `gorm:"column:total_count;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
