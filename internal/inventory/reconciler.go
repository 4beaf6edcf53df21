package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelhub/hostelhub-backend/pkg/db/models"
	"github.com/hostelhub/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
)

// Reconciler applies booking status transitions together with their room
// inventory effect. Both writes are guarded updates executed on the caller's
// transaction, so a failed count mutation rolls the status change back.
type Reconciler struct {
	logg *logger.Logger
}

// NewReconciler builds the inventory reconciler.
func NewReconciler(logg *logger.Logger) *Reconciler {
	return &Reconciler{logg: logg}
}

// ApplyTransition moves the booking from its current status to target.
//
// The status write is a compare-and-swap on the current status, so a
// concurrent transition loses cleanly instead of double-applying the
// inventory effect. Returns applied=false without error when the booking is
// already in the target status, which callers treat as a replayed request.
func (r *Reconciler) ApplyTransition(ctx context.Context, tx *gorm.DB, booking *models.Booking, target enums.BookingStatus) (applied bool, err error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	if booking == nil {
		return false, errors.New("booking required")
	}
	if booking.Status == target {
		return false, nil
	}

	effect, allowed := TransitionEffect(booking.Status, target)
	if !allowed {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("booking cannot move from %s to %s", booking.Status, target))
	}

	res := tx.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, booking.Status).
		Update("status", target)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, r.resolveLostRace(ctx, tx, booking.ID, target)
	}

	switch effect {
	case EffectDecrement:
		if err := r.decrement(ctx, tx, booking.RoomID); err != nil {
			return false, err
		}
	case EffectIncrement:
		if err := r.increment(ctx, tx, booking.RoomID); err != nil {
			return false, err
		}
	}

	booking.Status = target
	if r.logg != nil {
		logCtx := r.logg.WithBookingID(ctx, booking.ID.String())
		logCtx = r.logg.WithRoomID(logCtx, booking.RoomID.String())
		r.logg.Info(logCtx, fmt.Sprintf("booking transitioned to %s", target))
	}
	return true, nil
}

// resolveLostRace inspects the booking after a failed compare-and-swap. A
// concurrent transition to the same target is treated as already applied.
func (r *Reconciler) resolveLostRace(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, target enums.BookingStatus) error {
	var current models.Booking
	if err := tx.WithContext(ctx).Where("id = ?", bookingID).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return err
	}
	if current.Status == target {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("booking cannot move from %s to %s", current.Status, target))
}

func (r *Reconciler) decrement(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) error {
	res := tx.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND available_count > 0", roomID).
		Update("available_count", gorm.Expr("available_count - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInventoryExhausted, "no rooms available")
	}
	return nil
}

func (r *Reconciler) increment(ctx context.Context, tx *gorm.DB, roomID uuid.UUID) error {
	res := tx.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND available_count < total_count", roomID).
		Update("available_count", gorm.Expr("available_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Returning more units than the room owns means a transition was
		// double-applied somewhere; refuse rather than corrupt the count.
		return pkgerrors.New(pkgerrors.CodeStateConflict, "room inventory already at capacity")
	}
	return nil
}
