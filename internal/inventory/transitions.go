package inventory

import "github.com/hostelhub/hostelhub-backend/pkg/enums"

// Effect describes what a booking status transition does to the room's
// available count. Exactly one decrement happens per transition into
// confirmed, and exactly one increment per transition out of it.
type Effect int

const (
	EffectNone Effect = iota
	EffectDecrement
	EffectIncrement
)

var transitions = map[enums.BookingStatus]map[enums.BookingStatus]Effect{
	enums.BookingStatusPendingPayment: {
		enums.BookingStatusConfirmed:     EffectDecrement,
		enums.BookingStatusPaymentFailed: EffectNone,
	},
	enums.BookingStatusPaymentFailed: {
		enums.BookingStatusConfirmed: EffectDecrement,
	},
	enums.BookingStatusConfirmed: {
		enums.BookingStatusCancelled: EffectIncrement,
		enums.BookingStatusRefunded:  EffectIncrement,
	},
}

// TransitionEffect returns the inventory effect for the from→to edge and
// whether that edge is allowed at all.
func TransitionEffect(from, to enums.BookingStatus) (Effect, bool) {
	targets, ok := transitions[from]
	if !ok {
		return EffectNone, false
	}
	effect, ok := targets[to]
	return effect, ok
}
