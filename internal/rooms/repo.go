package rooms

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
)

// Repository defines persistence operations for the room catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	FindBySlug(ctx context.Context, slug string) (*models.Room, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rooms repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}
