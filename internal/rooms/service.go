package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/pkg/config"
	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
)

const availabilityCacheKey = "rooms:availability"

// RoomAvailability is the public availability projection for one room.
type RoomAvailability struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Description    *string         `json:"description,omitempty"`
	NightlyPrice   decimal.Decimal `json:"nightly_price"`
	MaxOccupancy   int             `json:"max_occupancy"`
	AvailableCount int             `json:"available_count"`
	TotalCount     int             `json:"total_count"`
}

type availabilityCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Service exposes the room catalog reads.
type Service interface {
	ListAvailability(ctx context.Context) ([]RoomAvailability, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*RoomAvailability, error)
}

type service struct {
	repo  Repository
	cache availabilityCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService builds the rooms service. The cache is optional; without it every
// read goes to the database.
func NewService(repo Repository, cache availabilityCache, cfg config.CacheConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rooms repository required")
	}
	return &service{
		repo:  repo,
		cache: cache,
		ttl:   cfg.AvailabilityTTL,
		logg:  logg,
	}, nil
}

func (s *service) ListAvailability(ctx context.Context) ([]RoomAvailability, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	roomRows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing rooms")
	}

	projection := make([]RoomAvailability, 0, len(roomRows))
	for _, room := range roomRows {
		projection = append(projection, toAvailability(room))
	}

	s.storeCache(ctx, projection)
	return projection, nil
}

func (s *service) GetRoom(ctx context.Context, id uuid.UUID) (*RoomAvailability, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	room, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading room")
	}
	projection := toAvailability(*room)
	return &projection, nil
}

func (s *service) fromCache(ctx context.Context) ([]RoomAvailability, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey(availabilityCacheKey))
	if err != nil || raw == "" {
		return nil, false
	}
	var cached []RoomAvailability
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false
	}
	return cached, true
}

func (s *service) storeCache(ctx context.Context, projection []RoomAvailability) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	encoded, err := json.Marshal(projection)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(availabilityCacheKey), string(encoded), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "caching room availability failed")
	}
}

func toAvailability(room models.Room) RoomAvailability {
	return RoomAvailability{
		ID:             room.ID,
		Name:           room.Name,
		Slug:           room.Slug,
		Description:    room.Description,
		NightlyPrice:   room.NightlyPrice,
		MaxOccupancy:   room.MaxOccupancy,
		AvailableCount: room.AvailableCount,
		TotalCount:     room.TotalCount,
	}
}
