package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hostelhub/hostelhub-backend/pkg/logger"
)

// pendingExpirer is the slice of the booking service this job needs.
type pendingExpirer interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// BookingTTLJobParams configure the stale booking sweeper.
type BookingTTLJobParams struct {
	Logger     *logger.Logger
	Bookings   pendingExpirer
	PendingTTL time.Duration
}

// NewBookingTTLJob builds the job that moves bookings stuck awaiting payment
// to payment_failed once their hold window lapses. Expiry never touches room
// inventory because a pending booking holds none.
func NewBookingTTLJob(params BookingTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking service required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	return &bookingTTLJob{
		logg:       params.Logger,
		bookings:   params.Bookings,
		pendingTTL: params.PendingTTL,
		now:        time.Now,
	}, nil
}

type bookingTTLJob struct {
	logg       *logger.Logger
	bookings   pendingExpirer
	pendingTTL time.Duration
	now        func() time.Time
}

func (j *bookingTTLJob) Name() string { return "booking-ttl" }

func (j *bookingTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.pendingTTL)
	expired, err := j.bookings.ExpirePendingBefore(ctx, cutoff)
	logCtx := j.logg.WithField(ctx, "count", expired)
	if err != nil {
		return fmt.Errorf("expire pending bookings: %w", err)
	}
	j.logg.Info(logCtx, "pending booking sweep complete")
	return nil
}
